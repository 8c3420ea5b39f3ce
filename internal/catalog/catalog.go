// Package catalog loads the immutable list of purchasable services.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	TaskTypes []struct {
		Type     string `yaml:"type"`
		Cooldown string `yaml:"cooldown"`
	} `yaml:"taskTypes"`
	Services []struct {
		Platform    string `yaml:"platform"`
		ServiceID   string `yaml:"serviceId"`
		TaskType    string `yaml:"taskType"`
		Title       string `yaml:"title"`
		BasePrice   string `yaml:"basePrice"`
		Rate        string `yaml:"rate"`
		MinQuantity int    `yaml:"minQuantity"`
		MaxQuantity int    `yaml:"maxQuantity"`
	} `yaml:"services"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	services        map[domain.ServiceKey]domain.ServiceDefinition
	ordered         []domain.ServiceDefinition
	cooldowns       map[domain.TaskType]time.Duration
	defaultCooldown time.Duration
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string, defaultCooldown time.Duration) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data, defaultCooldown)
}

// Load parses and validates a YAML catalog. Task types without an explicit
// cooldown use defaultCooldown.
func Load(data []byte, defaultCooldown time.Duration) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		services:        make(map[domain.ServiceKey]domain.ServiceDefinition, len(f.Services)),
		cooldowns:       make(map[domain.TaskType]time.Duration),
		defaultCooldown: defaultCooldown,
	}

	for _, tt := range f.TaskTypes {
		typ := domain.TaskType(tt.Type)
		if !typ.Valid() {
			return nil, fmt.Errorf("catalog: unknown task type %q", tt.Type)
		}
		if tt.Cooldown == "" {
			continue
		}
		d, err := time.ParseDuration(tt.Cooldown)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("catalog: bad cooldown %q for %s", tt.Cooldown, typ)
		}
		c.cooldowns[typ] = d
	}

	for i, s := range f.Services {
		def := domain.ServiceDefinition{
			Platform:    domain.Platform(s.Platform),
			ServiceID:   s.ServiceID,
			TaskType:    domain.TaskType(s.TaskType),
			Title:       s.Title,
			MinQuantity: s.MinQuantity,
			MaxQuantity: s.MaxQuantity,
		}
		var err error
		if def.BasePrice, err = decimal.NewFromString(s.BasePrice); err != nil {
			return nil, fmt.Errorf("catalog: service %d: base price: %w", i, err)
		}
		if def.Rate, err = decimal.NewFromString(s.Rate); err != nil {
			return nil, fmt.Errorf("catalog: service %d: rate: %w", i, err)
		}
		if err := validate(def); err != nil {
			return nil, fmt.Errorf("catalog: service %s: %w", def.Key(), err)
		}
		if _, dup := c.services[def.Key()]; dup {
			return nil, fmt.Errorf("catalog: duplicate service %s", def.Key())
		}
		c.services[def.Key()] = def
		c.ordered = append(c.ordered, def)
	}

	if len(c.ordered) == 0 {
		return nil, fmt.Errorf("catalog: no services defined")
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		if c.ordered[i].Platform != c.ordered[j].Platform {
			return c.ordered[i].Platform < c.ordered[j].Platform
		}
		return c.ordered[i].ServiceID < c.ordered[j].ServiceID
	})

	return c, nil
}

func validate(def domain.ServiceDefinition) error {
	switch {
	case !def.Platform.Valid():
		return fmt.Errorf("unknown platform %q", def.Platform)
	case def.ServiceID == "":
		return fmt.Errorf("empty service id")
	case !def.TaskType.Valid():
		return fmt.Errorf("unknown task type %q", def.TaskType)
	case !def.BasePrice.IsPositive():
		return fmt.Errorf("base price must be positive")
	case def.Rate.IsNegative():
		return fmt.Errorf("rate must not be negative")
	case def.Rate.GreaterThan(def.BasePrice):
		return fmt.Errorf("rate %s exceeds base price %s", def.Rate, def.BasePrice)
	case def.MinQuantity < 1 || def.MaxQuantity < def.MinQuantity:
		return fmt.Errorf("bad quantity bounds [%d, %d]", def.MinQuantity, def.MaxQuantity)
	}
	return nil
}

// Lookup returns the definition for a platform/service pair.
func (c *Catalog) Lookup(platform domain.Platform, serviceID string) (domain.ServiceDefinition, error) {
	def, ok := c.services[domain.ServiceKey{Platform: platform, ServiceID: serviceID}]
	if !ok {
		return domain.ServiceDefinition{}, fmt.Errorf("%w: %s/%s", domain.ErrUnknownService, platform, serviceID)
	}
	return def, nil
}

// Services returns all definitions ordered by platform and service id.
func (c *Catalog) Services() []domain.ServiceDefinition {
	out := make([]domain.ServiceDefinition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Cooldown returns the rest period after an execution of a repeatable task
// type. Terminal types always return zero.
func (c *Catalog) Cooldown(t domain.TaskType) time.Duration {
	if !t.Repeatable() {
		return 0
	}
	if d, ok := c.cooldowns[t]; ok {
		return d
	}
	return c.defaultCooldown
}
