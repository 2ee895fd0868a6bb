package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tomz197/spacewars/internal/object"
)

// Kind identifies which entity a decoded line describes.
type Kind int

const (
	KindUnknown Kind = iota
	KindShip
	KindProjectile
	KindStar
)

// String returns the wire key of the kind.
func (k Kind) String() string {
	switch k {
	case KindShip:
		return "ship"
	case KindProjectile:
		return "proj"
	case KindStar:
		return "star"
	default:
		return "unknown"
	}
}

// ErrUnknownEntity is returned for well-formed JSON that is not an entity.
var ErrUnknownEntity = errors.New("protocol: line is not a ship, projectile or star")

// Message is one decoded broadcast line. Exactly one entity field is set.
type Message struct {
	Kind       Kind
	Ship       *object.Ship
	Projectile *object.Projectile
	Star       *object.Star
}

// AppendFrame appends one tick of broadcast output to b: every ship, then
// every projectile, then every star, one JSON object per line. An entity that
// cannot be encoded is left out and the rest are still appended; the
// returned error joins every such failure.
func AppendFrame(b []byte, ships []*object.Ship, projectiles []*object.Projectile, stars []*object.Star) ([]byte, error) {
	var errs []error
	add := func(e object.Entity) {
		var err error
		if b, err = appendEntity(b, e); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range ships {
		add(s)
	}
	for _, p := range projectiles {
		add(p)
	}
	for _, s := range stars {
		add(s)
	}
	return b, errors.Join(errs...)
}

func appendEntity(b []byte, e object.Entity) ([]byte, error) {
	data, err := e.MarshalJSON()
	if err != nil {
		return b, fmt.Errorf("encode entity %d: %w", e.EntityID(), err)
	}
	b = append(b, data...)
	return append(b, '\n'), nil
}

type entityKey struct {
	Ship *int `json:"ship"`
	Proj *int `json:"proj"`
	Star *int `json:"star"`
}

// DecodeLine decodes one broadcast line.
func DecodeLine(line []byte) (Message, error) {
	var p entityKey
	if err := json.Unmarshal(line, &p); err != nil {
		return Message{}, err
	}

	switch {
	case p.Ship != nil:
		var s object.Ship
		if err := json.Unmarshal(line, &s); err != nil {
			return Message{}, err
		}
		return Message{Kind: KindShip, Ship: &s}, nil
	case p.Proj != nil:
		var pr object.Projectile
		if err := json.Unmarshal(line, &pr); err != nil {
			return Message{}, err
		}
		return Message{Kind: KindProjectile, Projectile: &pr}, nil
	case p.Star != nil:
		var s object.Star
		if err := json.Unmarshal(line, &s); err != nil {
			return Message{}, err
		}
		return Message{Kind: KindStar, Star: &s}, nil
	default:
		return Message{}, ErrUnknownEntity
	}
}
