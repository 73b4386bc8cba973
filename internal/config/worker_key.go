package config

type WorkerKeyStruct struct {
	PersistSessionsQueue string
	PersistResultsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSessionsQueue: "persist_sessions_queue",
	PersistResultsQueue:  "persist_results_queue",
}
