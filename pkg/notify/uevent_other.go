//go:build !linux

package notify

import "context"

// Changes is unavailable outside Linux.
func (u *UeventNotifier) Changes(context.Context) (<-chan Change, error) {
	return nil, ErrUnsupported
}
