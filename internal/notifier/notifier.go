package notifier

import (
	"sync"

	"mesa/pkg/models"
)

// Callback receives a change notification for the table it subscribed to.
// Callbacks are expected to re-fetch current state; notifications carry no
// ordering guarantee and no payload beyond the change key.
type Callback func(n models.ChangeNotification)

// Notifier fans change notifications out to the callbacks registered per
// table, so independently rendered surfaces converge without manual refresh.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Callback
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[int]Callback)}
}

// Subscribe registers cb for changes on the given table and returns the
// handle that removes the registration.
func (n *Notifier) Subscribe(table string, cb Callback) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.subs[table] == nil {
		n.subs[table] = make(map[int]Callback)
	}
	n.subs[table][id] = cb

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[table], id)
	}
}

// Dispatch invokes every callback registered for the notification's table.
func (n *Notifier) Dispatch(notification models.ChangeNotification) {
	n.mu.Lock()
	callbacks := make([]Callback, 0, len(n.subs[notification.Table]))
	for _, cb := range n.subs[notification.Table] {
		callbacks = append(callbacks, cb)
	}
	n.mu.Unlock()

	for _, cb := range callbacks {
		cb(notification)
	}
}
