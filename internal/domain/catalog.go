package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

func (p Platform) Valid() bool {
	return p == PlatformInstagram || p == PlatformYouTube
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
	return p, nil
}

type TaskType string

const (
	TaskTypeLike      TaskType = "like"
	TaskTypeView      TaskType = "view"
	TaskTypeComment   TaskType = "comment"
	TaskTypeWatchTime TaskType = "watchTime"
	TaskTypeFollow    TaskType = "follow"
	TaskTypeSubscribe TaskType = "subscribe"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeLike, TaskTypeView, TaskTypeComment, TaskTypeWatchTime, TaskTypeFollow, TaskTypeSubscribe:
		return true
	}
	return false
}

// Repeatable reports whether a target can take another round of this
// engagement after a cooldown. A follow or subscription cannot be redone.
func (t TaskType) Repeatable() bool {
	return t != TaskTypeFollow && t != TaskTypeSubscribe
}

// ServiceDefinition is one purchasable catalog entry.
type ServiceDefinition struct {
	Platform    Platform
	ServiceID   string
	TaskType    TaskType
	Title       string
	BasePrice   decimal.Decimal
	Rate        decimal.Decimal
	MinQuantity int
	MaxQuantity int
}

// Key identifies a service inside the catalog.
func (s ServiceDefinition) Key() ServiceKey {
	return ServiceKey{Platform: s.Platform, ServiceID: s.ServiceID}
}

type ServiceKey struct {
	Platform  Platform
	ServiceID string
}

func (k ServiceKey) String() string {
	return string(k.Platform) + "/" + k.ServiceID
}
