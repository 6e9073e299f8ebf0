package curriculum

// Topic is one unit in the learning track.
type Topic struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Next        string `yaml:"next"` // empty on the final topic
}

// HasNext reports whether the topic has a successor.
func (t Topic) HasNext() bool {
	return t.Next != ""
}

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	Topics []Topic `yaml:"topics"`
}
