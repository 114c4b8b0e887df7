package view

import "github.com/mesh-intelligence/gourmet/pkg/types"

// Mode is the screen the controller is showing.
type Mode int

// Modes.
const (
	ModeList Mode = iota
	ModeForm
	ModeDetail
)

func (m Mode) String() string {
	switch m {
	case ModeForm:
		return "form"
	case ModeDetail:
		return "detail"
	default:
		return "list"
	}
}

// FormMode tells a create form from an edit form.
type FormMode int

// Form modes.
const (
	FormCreate FormMode = iota
	FormEdit
)

func (m FormMode) String() string {
	if m == FormEdit {
		return "edit"
	}
	return "create"
}

// Fields are the free-text form inputs. Tags hold the comma-separated text
// as typed.
type Fields struct {
	ShopName  string
	VisitDate string
	Comment   string
	Tags      string
	Favorite  bool
}

// FormState is everything the form holds before submit, including staged
// photos and rating.
type FormState struct {
	Fields
	Images []string
	Rating int
}

// UiState is the whole mutable state of a session.
type UiState struct {
	Mode          Mode
	FormMode      FormMode
	CurrentID     int64 // 0 when no record is selected
	Form          FormState
	Search        string
	Sort          types.SortKey
	FavoritesOnly bool
}

func (s UiState) filter() types.ListFilter {
	return types.ListFilter{SearchText: s.Search, FavoritesOnly: s.FavoritesOnly, SortKey: s.Sort}
}

// Entry is one row of the record list.
type Entry struct {
	ID        int64
	ShopName  string
	VisitDate string
	Rating    int
	Favorite  bool
	Photos    int
	Active    bool
}
