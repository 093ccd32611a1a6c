package pluginapi

// EventPriority orders listeners. Lower priorities run first; Monitor runs
// last and must not change the outcome.
type EventPriority int32

const (
	PriorityLowest EventPriority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityHighest
	PriorityMonitor
)

func (p EventPriority) String() string {
	switch p {
	case PriorityLowest:
		return "LOWEST"
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityHighest:
		return "HIGHEST"
	case PriorityMonitor:
		return "MONITOR"
	default:
		return "UNKNOWN"
	}
}

// Event type names shared with the native core.
const (
	PlayerJoinEventType = "org.bukkit.event.player.PlayerJoinEvent"
	PlayerQuitEventType = "org.bukkit.event.player.PlayerQuitEvent"
	PlayerChatEventType = "org.bukkit.event.player.AsyncPlayerChatEvent"
)

// Event is delivered to listeners
type Event interface {
	EventType() string
	Cancelled() bool
	SetCancelled(cancel bool)
}

// EventHandler receives fired events
type EventHandler func(Event)

// Cancellable is embedded by every concrete event
type Cancellable struct {
	cancelled bool
}

func (c *Cancellable) Cancelled() bool          { return c.cancelled }
func (c *Cancellable) SetCancelled(cancel bool) { c.cancelled = cancel }

// PlayerJoinEvent fires when a player joins the server
type PlayerJoinEvent struct {
	Cancellable
	Player      Handle `json:"playerUuid"`
	JoinMessage string `json:"joinMessage"`
}

func (e *PlayerJoinEvent) EventType() string { return PlayerJoinEventType }

// PlayerQuitEvent fires when a player leaves the server
type PlayerQuitEvent struct {
	Cancellable
	Player      Handle `json:"playerUuid"`
	QuitMessage string `json:"quitMessage"`
}

func (e *PlayerQuitEvent) EventType() string { return PlayerQuitEventType }

// PlayerChatEvent fires when a player sends a chat message
type PlayerChatEvent struct {
	Cancellable
	Player  Handle `json:"playerUuid"`
	Message string `json:"message"`
}

func (e *PlayerChatEvent) EventType() string { return PlayerChatEventType }
