package model

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrGroupNotFound  = errors.New("group not found")
)

// NewRecordID is the sentinel identity of an unsaved record: an edit
// buffer carrying it represents a new entity, never an existing one.
const NewRecordID = 0

// NewGroupID is the unsaved-group sentinel, mirroring NewRecordID.
const NewGroupID = 0

type Record struct {
	ID                int    `json:"idRecord"`
	Title             string `json:"titleRecord"`
	YearOfPublication *int   `json:"yearOfPublication,omitempty"`
	// ImageURL is server-owned; Photo/PhotoName hold a pending client-side
	// upload and are mutually exclusive with ImageURL until saved.
	ImageURL     string  `json:"imageRecord,omitempty"`
	Photo        []byte  `json:"-"`
	PhotoName    string  `json:"-"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	Discontinued bool    `json:"discontinued"`
	GroupID      *int    `json:"groupId,omitempty"`

	// GroupName and NameGroup carry the same resolved display value; two
	// fields survive for compatibility with two historical call sites.
	// Both are derived from GroupID on every refresh and never trusted
	// from the gateway payload.
	GroupName string `json:"groupName,omitempty"`
	NameGroup string `json:"nameGroup,omitempty"`

	// InCart and Amount are derived from the latest cart snapshot and
	// never persisted by the gateway.
	InCart bool `json:"-"`
	Amount int  `json:"-"`
}

// IsNew reports whether the record is the unsaved sentinel.
func (r Record) IsNew() bool { return r.ID == NewRecordID }

// HasPendingPhoto reports whether a client-side upload is attached.
func (r Record) HasPendingPhoto() bool { return len(r.Photo) > 0 }

type Group struct {
	ID           int    `json:"idGroup"`
	Name         string `json:"nameGroup"`
	MusicGenreID *int   `json:"musicGenreId,omitempty"`
	ImageURL     string `json:"imageGroup,omitempty"`
	Photo        []byte `json:"-"`
	PhotoName    string `json:"-"`
}

func (g Group) IsNew() bool { return g.ID == NewGroupID }

func (g Group) HasPendingPhoto() bool { return len(g.Photo) > 0 }

// CartItem is one line of the cart snapshot broadcast by the cart channel.
type CartItem struct {
	RecordID int `json:"idRecord"`
	Amount   int `json:"amount"`
}
