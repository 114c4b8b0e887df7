package record

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// storedRecord is every shape a record body has had on disk. Pointer fields
// distinguish an absent member from its zero value.
type storedRecord struct {
	ShopName  string   `json:"shopName"`
	VisitDate string   `json:"visitDate"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
	Image     *string  `json:"image"` // single-photo records before images existed
	Rating    *float64 `json:"rating"`
	Favorite  *bool    `json:"favorite"`
	Tags      []string `json:"tags"`
	CreatedAt *float64 `json:"createdAt"`
}

// recordBody is the canonical body written for every record. The key is
// held by the store, not the body.
type recordBody struct {
	ShopName  string   `json:"shopName"`
	VisitDate string   `json:"visitDate"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
	Rating    int      `json:"rating"`
	Favorite  bool     `json:"favorite"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"createdAt"`
}

// Normalize decodes a stored document into the current Record shape:
// a missing images list falls back to the legacy image member, and missing
// rating, favorite, tags and createdAt read as zero values. Ratings outside
// 0..5 are clamped.
func Normalize(doc types.Document) (*types.Record, error) {
	sr, err := decodeBody(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: record %d: %v", types.ErrInvalidData, doc.ID, err)
	}

	rec := &types.Record{
		ID:        doc.ID,
		ShopName:  sr.ShopName,
		VisitDate: sr.VisitDate,
		Comment:   sr.Comment,
		Images:    sr.Images,
		Tags:      sr.Tags,
	}
	switch {
	case rec.Images != nil:
	case sr.Image != nil && *sr.Image != "":
		rec.Images = []string{*sr.Image}
	default:
		rec.Images = []string{}
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if sr.Rating != nil {
		rec.Rating = clampRating(int(*sr.Rating))
	}
	if sr.Favorite != nil {
		rec.Favorite = *sr.Favorite
	}
	if sr.CreatedAt != nil {
		rec.CreatedAt = int64(*sr.CreatedAt)
	}
	return rec, nil
}

// Check reports whether body decodes as a stored record, that is, whether
// Normalize will read it back. Members it does not know are ignored.
func Check(body []byte) error {
	_, err := decodeBody(body)
	return err
}

func decodeBody(body []byte) (storedRecord, error) {
	var sr storedRecord
	err := json.Unmarshal(body, &sr)
	return sr, err
}

// encodeBody serializes rec in the canonical shape, without its key.
func encodeBody(rec *types.Record) ([]byte, error) {
	body := recordBody{
		ShopName:  rec.ShopName,
		VisitDate: rec.VisitDate,
		Comment:   rec.Comment,
		Images:    rec.Images,
		Rating:    rec.Rating,
		Favorite:  rec.Favorite,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt,
	}
	if body.Images == nil {
		body.Images = []string{}
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

func clampRating(n int) int {
	if n < types.RatingUnset {
		return types.RatingUnset
	}
	if n > types.RatingMax {
		return types.RatingMax
	}
	return n
}
