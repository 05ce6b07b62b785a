package domain

// WorkerKind discriminates the closed set of worker transports.
type WorkerKind string

const (
	// WorkerBuiltin runs in-process.
	WorkerBuiltin WorkerKind = "builtin"
	// WorkerProcess is spawned as a child process speaking stdio.
	WorkerProcess WorkerKind = "process"
	// WorkerRemote is reached over the network.
	WorkerRemote WorkerKind = "remote"
)

// WorkerRef identifies one worker serving a persona. It is a closed tagged
// variant: each constructor carries only the data its kind needs, and
// routing/health logic uses only the common accessors.
type WorkerRef struct {
	id      string
	persona string
	kind    WorkerKind

	// process kind only
	command string
	args    []string

	// remote kind only
	endpoint string
}

// BuiltinWorker returns a reference to an in-process worker.
func BuiltinWorker(id, persona string) WorkerRef {
	return WorkerRef{id: id, persona: persona, kind: WorkerBuiltin}
}

// ProcessWorker returns a reference to a spawned child-process worker.
func ProcessWorker(id, persona, command string, args ...string) WorkerRef {
	return WorkerRef{id: id, persona: persona, kind: WorkerProcess, command: command, args: args}
}

// RemoteWorker returns a reference to a network-reachable worker.
func RemoteWorker(id, persona, endpoint string) WorkerRef {
	return WorkerRef{id: id, persona: persona, kind: WorkerRemote, endpoint: endpoint}
}

func (w WorkerRef) ID() string       { return w.id }
func (w WorkerRef) Persona() string  { return w.persona }
func (w WorkerRef) Kind() WorkerKind { return w.kind }

// Command returns the spawn command for process workers; empty otherwise.
func (w WorkerRef) Command() (string, []string) {
	return w.command, append([]string(nil), w.args...)
}

// Endpoint returns the address for remote workers; empty otherwise.
func (w WorkerRef) Endpoint() string { return w.endpoint }
