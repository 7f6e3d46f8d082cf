// Package harness drives a unit under test through its production lifecycle
// against the process-wide feature registrar.
//
// A run moves through these states:
//
//	CONFIGURED  collected configurations and Test.Configure are applied
//	REGISTERED  Test.Features are registered
//	PATCHED     registrar residue is cleared, the unit wrapper is installed,
//	            every registered feature is re-queued and activated
//	RUNNING     the unit is driven; gates decide when it starts and stops
//	STOPPING    the registrar's post-stop hook runs
//	TORN_DOWN   every registered feature is deregistered
//
// STOPPING and TORN_DOWN always run once REGISTERED has begun. The first
// failure is returned after teardown, with teardown failures joined to it.
//
// Registrar bookkeeping is reached through mirror cells bound to its
// unexported fields, so a test run leaves the registrar in the same state a
// production unit would.
//
// Go tests use RunTest:
//
//	func TestSample(t *testing.T) {
//		harness.RunTest(t, &sampleTest{})
//	}
package harness
