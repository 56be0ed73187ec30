package result

// Summary is a single ranked search hit: the product fields the
// presentation layer shows, plus the distance it was ranked by.
type Summary struct {
	id       string
	summary  string
	price    int
	color    string
	neckline string
	image    string
	distance float64
}

// New creates a search hit.
func New(id, summary string, price int, color, neckline, image string, distance float64) Summary {
	return Summary{
		id: id, summary: summary, price: price,
		color: color, neckline: neckline, image: image,
		distance: distance,
	}
}

// ID returns the product identifier.
func (s *Summary) ID() string { return s.id }

// Summary returns the product summary text.
func (s *Summary) Summary() string { return s.summary }

// Price returns the product price.
func (s *Summary) Price() int { return s.price }

// Color returns the product color.
func (s *Summary) Color() string { return s.color }

// Neckline returns the product neckline, empty when not applicable.
func (s *Summary) Neckline() string { return s.neckline }

// Image returns the primary image path.
func (s *Summary) Image() string { return s.image }

// Distance returns the cosine distance to the query vector
// (smaller is more similar).
func (s *Summary) Distance() float64 { return s.distance }

// Visual is the outcome of an image-space search that may legitimately have
// nothing to rank: a source product without visual data is a distinct
// non-error condition, not an empty match.
type Visual struct {
	Products     []Summary
	NoVisualData bool
}
