// Package push contains the public domain model for the push scheduler:
// the canonical notification record, the two-variant recipient address,
// and the delivery contract shared by all transports.
package push

// Default asset paths applied by Build when the caller supplies none.
// They match the icon set shipped with the installable web client.
const (
	DefaultIcon  = "/android/android-launchericon-192-192.png"
	DefaultBadge = "/android/android-launchericon-72-72.png"
)

// Action is a button rendered on the displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is the canonical, transport-neutral record. All
// vendor-specific shaping happens inside the transports; this type never
// assumes a delivery mechanism.
type Notification struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon,omitempty"`
	Badge              string         `json:"badge,omitempty"`
	Image              string         `json:"image,omitempty"`
	Tag                string         `json:"tag,omitempty"`
	Direction          string         `json:"dir,omitempty"`
	Language           string         `json:"lang,omitempty"`
	Actions            []Action       `json:"actions,omitempty"`
	Vibrate            []int          `json:"vibrate,omitempty"`
	RequireInteraction bool           `json:"requireInteraction"`
	Renotify           bool           `json:"renotify"`
	Silent             bool           `json:"silent"`
	Data               map[string]any `json:"data"`
}

// Build constructs the canonical notification for a title/body pair.
// It is pure and total: every input yields a usable record, and missing
// optional fields degrade to transport defaults at send time instead of
// failing here.
func Build(title, body string) Notification {
	return Notification{
		Title: title,
		Body:  body,
		Icon:  DefaultIcon,
		Badge: DefaultBadge,
		Data: map[string]any{
			"url": "/",
		},
	}
}

// URL returns the click-through target carried in Data, falling back to
// the root path so a tap on the notification always lands somewhere.
func (n Notification) URL() string {
	if n.Data != nil {
		if u, ok := n.Data["url"].(string); ok && u != "" {
			return u
		}
	}
	return "/"
}
