package booking

import (
	"fmt"
	"time"
)

// Service contains the booking domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() time.Time
	config Config
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, config: DefaultConfig()}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	if err := service.config.Validate(); err != nil {
		return nil, err
	}
	service.config = service.config.withDefaults()
	return service, nil
}

// Config returns the effective booking policy.
func (service *Service) Config() Config {
	return service.config
}

func (service *Service) now() time.Time {
	return service.nowFn().In(service.config.Location)
}

func (service *Service) location() *time.Location {
	return service.config.Location
}

func actorRef(userID UserID) *UserID {
	if userID.IsZero() {
		return nil
	}
	actor := userID
	return &actor
}

func timeRef(value time.Time) *time.Time {
	return &value
}
