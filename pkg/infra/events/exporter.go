package events

import "context"

//go:generate mockery --name=Exporter --dir=. --output=./mocks --filename=exporter_mock.go --case=underscore --with-expecter
type Exporter interface {
	Name() string
	Handle(ctx context.Context, evt *Event) error
	Close()
}
