package utils

func (as *AppState) RegisteredShutdownChans() int {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	return len(as.gracefulShutdownChans)
}
