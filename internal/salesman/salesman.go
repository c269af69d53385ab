package salesman

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"github.com/Marcin0203/1und1-recruitment-task/internal/area"
)

// ErrEmptyName is returned when a record has no name.
var ErrEmptyName = errors.New("salesman: empty name")

// Salesman is one entry of the directory. Areas are area expressions
// ("76133", "761*") in the order they were declared.
type Salesman struct {
	Name  string   `json:"name" toml:"name" yaml:"name"`
	Areas []string `json:"areas" toml:"areas" yaml:"areas"`
}

// ID identifies a salesman by content. Two records with the same name and
// the same ordered areas share an ID.
type ID string

// idDomainKey separates salesman identities from any other BLAKE3 use.
var idDomainKey = [32]byte{
	's', 'a', 'l', 'e', 's', 'd', 'e', 'c', 'k', '.', 's', 'a', 'l', 'e', 's', 'm',
	'a', 'n', '.', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ID returns the content hash of the record. Fields are length-prefixed so
// ("ab", ["c"]) and ("a", ["bc"]) never collide by concatenation.
func (s Salesman) ID() ID {
	hasher, err := blake3.NewKeyed(idDomainKey[:])
	if err != nil {
		panic("salesman: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	writeField(hasher, s.Name)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s.Areas)))
	hasher.Write(n[:])
	for _, a := range s.Areas {
		writeField(hasher, a)
	}
	sum := hasher.Sum(nil)
	// 16 bytes is plenty for a directory that fits on one screen.
	return ID(hex.EncodeToString(sum[:16]))
}

func writeField(h *blake3.Hasher, v string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(v)))
	h.Write(n[:])
	h.Write([]byte(v))
}

// Initial returns the first character of the name, upper-cased.
func (s Salesman) Initial() string {
	r, size := utf8.DecodeRuneInString(s.Name)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// AreasJoined returns the areas as shown in the expanded row.
func (s Salesman) AreasJoined() string {
	return strings.Join(s.Areas, ", ")
}

// Validate checks the record is usable. Empty areas are allowed.
func (s Salesman) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Filter returns the salesmen whose territory overlaps the query, in their
// original order. An empty query returns the list unchanged; a query that is
// not a valid area expression returns nothing.
func Filter(list []Salesman, query string) []Salesman {
	q := area.Normalize(query)
	if q.Kind == area.Unfiltered {
		return list
	}
	if q.Kind == area.Invalid {
		return []Salesman{}
	}

	filtered := make([]Salesman, 0, len(list))
	for _, s := range list {
		if area.MatchesAny(q, s.Areas) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
