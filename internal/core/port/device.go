package port

// NetworkMonitor reports local network interface changes to the
// scanner. Implementations must stop delivering callbacks after Stop
// returns so shutdown unsubscribes cleanly.
type NetworkMonitor interface {
	Start(onChange func()) error
	Stop()
}
