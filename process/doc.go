// Package process spawns child processes with controlled standard streams
// and retrieves their termination status.
//
// A Command is built up with Arg, Env and SetStdin/SetStdout/SetStderr and
// spawned exactly once. Spawn resolves the three streams, hands the child its
// descriptors in a single process-creation call, and returns a Process handle
// together with the parent's ends of any pipes:
//
//	out, err := process.New("echo").Arg("hi").Output()
//	// out.Status.Success(), out.Stdout == []byte("hi\n")
//
// A Process does not own the child's lifecycle: dropping it neither waits
// nor kills. Callers reap with Wait or poll with TryWait.
//
// For one-shot execution with a context, captured output and optional stdin
// feeding, use Run or an Adapter.
package process
