package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	gameconfig "github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/network"
)

// ErrInvalidSetting is wrapped by every parse failure in Load.
var ErrInvalidSetting = errors.New("invalid setting")

// Environment keys.
const (
	KeyPort           = "SPACEWARS_PORT"
	KeyUniverseSize   = "SPACEWARS_UNIVERSE_SIZE"
	KeyMSPerFrame     = "SPACEWARS_MS_PER_FRAME"
	KeyFramesPerShot  = "SPACEWARS_FRAMES_PER_SHOT"
	KeyRespawnRate    = "SPACEWARS_RESPAWN_RATE"
	KeyStartingHP     = "SPACEWARS_STARTING_HP"
	KeyTeams          = "SPACEWARS_TEAM"
	KeyShotSpeed      = "SPACEWARS_SHOT_SPEED"
	KeyThrustStrength = "SPACEWARS_THRUST_STRENGTH"
	KeyTurningRate    = "SPACEWARS_TURNING_RATE"
	KeyShipHitBox     = "SPACEWARS_SHIP_HITBOX"
	KeyStarHitBox     = "SPACEWARS_STAR_HITBOX"
	KeyStars          = "SPACEWARS_STARS"
	KeyLogFile        = "SPACEWARS_LOG_FILE"
	KeyLogStderr      = "SPACEWARS_LOG_STDERR"
	KeyHTTPAddr       = "SPACEWARS_HTTP_ADDR"
	KeySSHAddr        = "SPACEWARS_SSH_ADDR"
	KeySSHHostKey     = "SPACEWARS_SSH_HOST_KEY"
)

// Config is everything the server process reads at startup.
type Config struct {
	Port       int
	Game       gameconfig.Settings
	LogFile    string
	LogStderr  bool
	HTTPAddr   string // Spectator endpoint, disabled when empty
	SSHAddr    string // Operator console, disabled when empty
	SSHHostKey string
}

// ListenAddr is the game listener address.
func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(GetEnv)
}

// LoadFrom reads settings through get, which returns the value for a key or
// the given fallback.
func LoadFrom(get func(key, fallback string) string) (Config, error) {
	p := parser{get: get}
	def := gameconfig.Default()

	cfg := Config{
		Port:       p.intVal(KeyPort, network.DefaultPort),
		LogFile:    get(KeyLogFile, "spacewars.log"),
		LogStderr:  p.boolVal(KeyLogStderr, true),
		HTTPAddr:   get(KeyHTTPAddr, ""),
		SSHAddr:    get(KeySSHAddr, ""),
		SSHHostKey: get(KeySSHHostKey, ".ssh/spacewars_ed25519"),
		Game: gameconfig.Settings{
			UniverseSize:   p.intVal(KeyUniverseSize, def.UniverseSize),
			MSPerFrame:     p.intVal(KeyMSPerFrame, def.MSPerFrame),
			FramesPerShot:  p.uintVal(KeyFramesPerShot, def.FramesPerShot),
			RespawnRate:    p.uintVal(KeyRespawnRate, def.RespawnRate),
			StartingHP:     p.intVal(KeyStartingHP, def.StartingHP),
			Teams:          p.boolVal(KeyTeams, false),
			ShotSpeed:      p.floatVal(KeyShotSpeed, def.ShotSpeed),
			ThrustStrength: p.floatVal(KeyThrustStrength, def.ThrustStrength),
			TurningRate:    p.floatVal(KeyTurningRate, def.TurningRate),
			ShipHitBox:     p.uintVal(KeyShipHitBox, def.ShipHitBox),
			StarHitBox:     p.uintVal(KeyStarHitBox, def.StarHitBox),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}

	stars, err := ParseStars(get(KeyStars, "0,0,0.01"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidSetting, KeyStars, err)
	}
	cfg.Game.Stars = stars

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch {
	case cfg.Port <= 0 || cfg.Port > 65535:
		return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidSetting, KeyPort, cfg.Port)
	case cfg.Game.UniverseSize <= 0:
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyUniverseSize)
	case cfg.Game.MSPerFrame <= 0:
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyMSPerFrame)
	case cfg.Game.StartingHP <= 0:
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyStartingHP)
	case cfg.Game.RespawnRate == 0:
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyRespawnRate)
	case cfg.Game.FramesPerShot == 0:
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyFramesPerShot)
	case !(cfg.Game.ShotSpeed > 0):
		return fmt.Errorf("%w: %s: must be positive", ErrInvalidSetting, KeyShotSpeed)
	}
	return nil
}

// ParseStars parses "x,y,mass" triples separated by ';'. Blank entries are
// skipped, so an empty string means no stars.
func ParseStars(s string) ([]gameconfig.StarPlacement, error) {
	var stars []gameconfig.StarPlacement
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("star %q: want x,y,mass", entry)
		}
		x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("star %q: x: %w", entry, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("star %q: y: %w", entry, err)
		}
		mass, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("star %q: mass: %w", entry, err)
		}
		stars = append(stars, gameconfig.StarPlacement{X: x, Y: y, Mass: mass})
	}
	return stars, nil
}

// parser keeps the first parse error so Load can read every key in one pass.
type parser struct {
	get func(key, fallback string) string
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidSetting, key, raw, err)
	}
}

func (p *parser) intVal(key string, fallback int) int {
	raw := p.get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) uintVal(key string, fallback uint) uint {
	raw := p.get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return uint(v)
}

func (p *parser) floatVal(key string, fallback float64) float64 {
	raw := p.get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) boolVal(key string, fallback bool) bool {
	raw := p.get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}
