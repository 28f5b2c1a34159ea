package checker

import (
	"reflect"
	"testing"

	"github.com/chrissicool/lbc/internal/cparse"
	"github.com/chrissicool/lbc/internal/locks"
)

func check(t *testing.T, src string) []Diagnostic {
	t.Helper()
	f, err := cparse.ParseFile("test.c", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return CheckFile(f, locks.DefaultCatalog())
}

func wantNone(t *testing.T, src string) {
	t.Helper()
	if diags := check(t, src); len(diags) != 0 {
		t.Fatalf("want no diagnostics, got %+v", diags)
	}
}

func count(snap locks.Snapshot, family string) int {
	for _, fc := range snap {
		if fc.Family == family {
			return fc.Count
		}
	}
	return 0
}

func TestBalancedPair(t *testing.T) {
	wantNone(t, `void f(void) { splraise(IPL_HIGH); spllower(IPL_NONE); }`)
}

func TestUnbalancedReturn(t *testing.T) {
	diags := check(t, `void f(void) { splraise(IPL_HIGH); return; }`)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Kind != KindReturn || d.Function != "f" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if count(d.State, "spl") != 1 {
		t.Fatalf("state = %v, want spl=1", d.State)
	}
}

func TestBranchSplit(t *testing.T) {
	diags := check(t, `void f(int x) { splraise(IPL_HIGH); if (x) { spllower(IPL_NONE); } }`)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Kind != KindEndOfFunction || count(d.State, "spl") != 1 {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestForbiddenLoopCondition(t *testing.T) {
	diags := check(t, `void f(void) { while (splraise(IPL_HIGH)) {} }`)
	if len(diags) != 1 || diags[0].Kind != KindForbidden {
		t.Fatalf("diagnostics = %+v, want one forbidden", diags)
	}
}

func TestSwitchCases(t *testing.T) {
	diags := check(t, `
void f(int x)
{
	mtx_enter(&m);
	switch (x) {
	case 1:
		mtx_leave(&m);
		break;
	case 2:
		break;
	}
}
`)
	// The case-2 path and the skip-every-case path exit with mtx held;
	// they collapse into one finding. The case-1 path is clean.
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Kind != KindEndOfFunction || count(d.State, "mtx") != 1 {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestPanicSilencesPath(t *testing.T) {
	wantNone(t, `void f(void) { mtx_enter(&m); panic("x"); }`)
}

func TestNoLockCallsNoDiagnostics(t *testing.T) {
	wantNone(t, `
int f(int x)
{
	if (x)
		return g(x);
	while (x--)
		h(x);
	return 0;
}
`)
}

func TestStraightLineBalanceEverywhere(t *testing.T) {
	wantNone(t, `
void f(int x)
{
	if (x) {
		mtx_enter(&m);
		mtx_leave(&m);
	} else {
		splraise(1);
		spllower(0);
	}
	mtx_enter(&m);
	mtx_leave(&m);
}
`)
}

func TestEndlessWhileAbsorbs(t *testing.T) {
	wantNone(t, `void f(void) { while (1) { splraise(IPL_HIGH); } }`)
}

func TestEndlessForAbsorbs(t *testing.T) {
	wantNone(t, `void f(void) { for (;;) { mtx_enter(&m); } }`)
}

func TestEndlessLoopWithBreakStillChecked(t *testing.T) {
	// Breaking out of while(1) resumes after the loop; the held lock is
	// caught at end of function. The endless-loop NoError applies only to
	// the sibling whose body runs to completion.
	diags := check(t, `
void f(int x)
{
	while (1) {
		if (x) {
			mtx_enter(&m);
			break;
		}
	}
}
`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "mtx") != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestBranchWithoutLockCallsIsPruned(t *testing.T) {
	// An if whose subtree has no catalog call and no goto is skipped
	// entirely, so the break it hides is never taken. The loop body then
	// balances on the only explored path.
	wantNone(t, `
void f(int x)
{
	while (1) {
		mtx_enter(&m);
		if (x)
			break;
		mtx_leave(&m);
	}
}
`)
}

func TestFiniteLoopSkipSibling(t *testing.T) {
	// One sibling never enters the loop, so the acquire inside is not
	// performed on that path and the function stays balanced there; the
	// entering sibling leaves unbalanced.
	diags := check(t, `void f(int n) { while (n--) { mtx_enter(&m); } }`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "mtx") != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestDoWhile(t *testing.T) {
	wantNone(t, `void f(void) { do { mtx_enter(&m); mtx_leave(&m); } while (x < 3); }`)

	diags := check(t, `void f(void) { do { mtx_enter(&m); } while (1); }`)
	if len(diags) != 0 {
		t.Fatalf("endless do-while must absorb, got %+v", diags)
	}
}

func TestForbiddenForHeader(t *testing.T) {
	diags := check(t, `void f(int i) { for (s = splraise(1); i < 4; i++) { spllower(0); } }`)
	found := false
	for _, d := range diags {
		if d.Kind == KindForbidden {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %+v, want a forbidden finding", diags)
	}
}

func TestForbiddenSwitchSelector(t *testing.T) {
	diags := check(t, `void f(void) { switch (splraise(1)) { case 1: spllower(0); break; } }`)
	found := false
	for _, d := range diags {
		if d.Kind == KindForbidden {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %+v, want a forbidden finding", diags)
	}
}

func TestForwardGotoSkipsRelease(t *testing.T) {
	diags := check(t, `
void f(int x)
{
	splraise(1);
	goto out;
	spllower(0);
out:
	;
}
`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "spl") != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestBackwardGotoTerminatesClean(t *testing.T) {
	wantNone(t, `
void f(void)
{
again:
	splraise(1);
	spllower(0);
	goto again;
}
`)
}

func TestOverRelease(t *testing.T) {
	diags := check(t, `void f(void) { spllower(IPL_NONE); }`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "spl") != -1 {
		t.Fatalf("diagnostics = %+v, want end_of_function with spl=-1", diags)
	}
}

func TestCondMemoKeepsBranchesConsistent(t *testing.T) {
	// The same condition appears twice; within one exploration the memo
	// forces the same side both times, so acquire and release pair up.
	wantNone(t, `
void f(int x)
{
	if (x)
		mtx_enter(&m);
	if (x)
		mtx_leave(&m);
}
`)
}

func TestTernarySplits(t *testing.T) {
	diags := check(t, `void f(int x) { x ? mtx_enter(&m) : mtx_leave(&m); }`)
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2 (one per arm): %+v", len(diags), diags)
	}
	counts := map[int]bool{}
	for _, d := range diags {
		if d.Kind != KindEndOfFunction {
			t.Fatalf("diagnostic = %+v", d)
		}
		counts[count(d.State, "mtx")] = true
	}
	if !counts[1] || !counts[-1] {
		t.Fatalf("states = %+v, want mtx=1 and mtx=-1", diags)
	}
}

func TestReturnInsideBranch(t *testing.T) {
	diags := check(t, `
void f(int x)
{
	mtx_enter(&m);
	if (x)
		return;
	mtx_leave(&m);
}
`)
	if len(diags) != 1 || diags[0].Kind != KindReturn || count(diags[0].State, "mtx") != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestCallsInsideReturnExpression(t *testing.T) {
	// The release inside the return expression still counts before the
	// balance check runs.
	wantNone(t, `int f(void) { mtx_enter(&m); return mtx_leave(&m); }`)
}

func TestNonIdentifierCalleeIsOpaque(t *testing.T) {
	wantNone(t, `void f(struct ops *o) { o->mtx_enter(&m); (*tab[0])(&m); }`)
}

func TestNestedCallArguments(t *testing.T) {
	diags := check(t, `void f(void) { log_it(mtx_enter(&m)); }`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "mtx") != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestEscapedBreakIsInternal(t *testing.T) {
	diags := check(t, `void f(void) { mtx_enter(&m); break; }`)
	if len(diags) != 1 || diags[0].Kind != KindInternal {
		t.Fatalf("diagnostics = %+v, want one internal", diags)
	}
}

func TestEscapedContinueIsInternal(t *testing.T) {
	diags := check(t, `void f(void) { mtx_enter(&m); continue; }`)
	if len(diags) != 1 || diags[0].Kind != KindInternal {
		t.Fatalf("diagnostics = %+v, want one internal", diags)
	}
}

func TestGotoIntoSwitchCaseIsInternal(t *testing.T) {
	diags := check(t, `
void f(int x)
{
	mtx_enter(&m);
	goto inside;
	switch (x) {
	case 1:
	inside:
		mtx_leave(&m);
		break;
	}
}
`)
	found := false
	for _, d := range diags {
		if d.Kind == KindInternal {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %+v, want an internal finding", diags)
	}
}

func TestSwitchFallthrough(t *testing.T) {
	// Entering case 1 falls through into case 2 and releases there, so
	// that path balances. Entering directly at case 2 over-releases; the
	// skip-every-case path stays at zero. Exactly one finding proves the
	// fall-through path was walked.
	diags := check(t, `
void f(int x)
{
	switch (x) {
	case 1:
		mtx_enter(&m);
	case 2:
		mtx_leave(&m);
		break;
	}
}
`)
	if len(diags) != 1 || diags[0].Kind != KindEndOfFunction || count(diags[0].State, "mtx") != -1 {
		t.Fatalf("diagnostics = %+v, want one end_of_function with mtx=-1", diags)
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	src := `
void f(int x)
{
	splraise(1);
	if (x)
		spllower(0);
	mtx_enter(&m);
	return;
}
`
	a := check(t, src)
	b := check(t, src)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs differ:\n%+v\n%+v", a, b)
	}
}

func TestReorderedIndependentPairs(t *testing.T) {
	one := `
void f(int x)
{
	if (x) { mtx_enter(&m); mtx_leave(&m); }
	else { splraise(1); spllower(0); }
}
`
	two := `
void f(int x)
{
	if (x) { splraise(1); spllower(0); }
	else { mtx_enter(&m); mtx_leave(&m); }
}
`
	if len(check(t, one)) != 0 || len(check(t, two)) != 0 {
		t.Fatal("reordering independent balanced pairs changed the outcome")
	}
}

func TestUnparseableFunctionIsInternal(t *testing.T) {
	diags := check(t, "void f(void)\n{\n\tif {\n}\n")
	if len(diags) != 1 || diags[0].Kind != KindInternal {
		t.Fatalf("diagnostics = %+v, want one internal", diags)
	}
}

func TestFilteredCatalog(t *testing.T) {
	f, err := cparse.ParseFile("test.c", []byte(`void f(void) { splraise(1); mtx_enter(&m); mtx_leave(&m); }`))
	if err != nil {
		t.Fatal(err)
	}
	sub, err := locks.DefaultCatalog().Filter([]string{"mtx"})
	if err != nil {
		t.Fatal(err)
	}
	// spl is outside the filtered catalog, so the dangling splraise is
	// invisible and the function is balanced.
	if diags := CheckFile(f, sub); len(diags) != 0 {
		t.Fatalf("diagnostics = %+v", diags)
	}
}

func TestMultipleFamiliesOnePath(t *testing.T) {
	diags := check(t, `
void f(void)
{
	splraise(1);
	mtx_enter(&m);
	spllower(0);
	return;
}
`)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Kind != KindReturn || count(d.State, "mtx") != 1 || count(d.State, "spl") != 0 {
		t.Fatalf("diagnostic = %+v", d)
	}
}
