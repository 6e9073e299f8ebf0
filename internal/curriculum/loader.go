package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog breaks the chain rules.
var ErrInvalidCatalog = errors.New("invalid curriculum catalog")

// Catalog is the immutable, ordered set of topics. It is safe for
// concurrent use because nothing mutates it after Load.
type Catalog struct {
	order  []string
	topics map[string]Topic
}

// Load reads a catalog from path, or the embedded default catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	source := "embedded"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading curriculum %s: %w", path, err)
		}
		data = b
		source = path
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum from %s: %w", source, err)
	}

	slog.Info("curriculum loaded", "source", source, "topics", len(c.order), "entry", c.order[0])
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(file.Topics)
}

// New builds a catalog from topics in teaching order. Ids must be unique,
// every Next must name a topic in the catalog, and following Next from any
// topic must end at a topic without a successor.
func New(topics []Topic) (*Catalog, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrInvalidCatalog)
	}

	c := &Catalog{
		order:  make([]string, 0, len(topics)),
		topics: make(map[string]Topic, len(topics)),
	}
	for _, t := range topics {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: topic with empty id", ErrInvalidCatalog)
		}
		if _, dup := c.topics[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate topic %q", ErrInvalidCatalog, t.ID)
		}
		c.topics[t.ID] = t
		c.order = append(c.order, t.ID)
	}

	for _, t := range topics {
		if t.HasNext() {
			if _, ok := c.topics[t.Next]; !ok {
				return nil, fmt.Errorf("%w: topic %q points to unknown topic %q", ErrInvalidCatalog, t.ID, t.Next)
			}
		}
	}

	// A chain longer than the catalog must revisit a topic.
	for _, id := range c.order {
		steps := 0
		for cur := c.topics[id]; cur.HasNext(); cur = c.topics[cur.Next] {
			steps++
			if steps > len(c.order) {
				return nil, fmt.Errorf("%w: cycle reachable from %q", ErrInvalidCatalog, id)
			}
		}
	}

	return c, nil
}

// Topic returns a topic by id.
func (c *Catalog) Topic(id string) (Topic, bool) {
	t, ok := c.topics[id]
	return t, ok
}

// Next returns the successor of the given topic, if any.
func (c *Catalog) Next(id string) (Topic, bool) {
	t, ok := c.topics[id]
	if !ok || !t.HasNext() {
		return Topic{}, false
	}
	return c.topics[t.Next], true
}

// First returns the entry topic.
func (c *Catalog) First() Topic {
	return c.topics[c.order[0]]
}

// All returns every topic in catalog order.
func (c *Catalog) All() []Topic {
	out := make([]Topic, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.topics[id])
	}
	return out
}

// Len returns the number of topics.
func (c *Catalog) Len() int {
	return len(c.order)
}
