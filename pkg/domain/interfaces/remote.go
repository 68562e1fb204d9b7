package interfaces

import (
	"context"

	"github.com/hearthlist/relay/pkg/domain/model"
)

// RemoteAPI delivers one action to the remote service and returns the
// server's canonical representation of the affected entity.
//
// A nil payload with a nil error means the server accepted the action but
// returned no body (e.g. delete). Failures assumed recoverable must wrap
// model.ErrTransientDelivery so the coordinator can apply the retry path.
type RemoteAPI interface {
	Execute(ctx context.Context, action *model.ActionRecord) (model.Payload, error)
}
