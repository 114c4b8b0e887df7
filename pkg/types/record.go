package types

// Record is a single restaurant visit.
//
// ID is assigned by the store and never changes. CreatedAt is epoch
// milliseconds, set once when the record is first inserted.
type Record struct {
	ID        int64    `json:"id"`
	ShopName  string   `json:"shopName"`
	VisitDate string   `json:"visitDate"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
	Rating    int      `json:"rating"`
	Favorite  bool     `json:"favorite"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"createdAt"`
}

// Rating bounds. Zero means the visit has not been rated.
const (
	RatingUnset = 0
	RatingMax   = 5
)

// Draft carries the user-editable fields of a record as submitted from a
// form. ID is only consulted on edit.
type Draft struct {
	ID        int64
	ShopName  string
	VisitDate string
	Comment   string
	Images    []string
	Rating    int
	Favorite  bool
	Tags      []string
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Images = append([]string(nil), r.Images...)
	c.Tags = append([]string(nil), r.Tags...)
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c
}
