package shield

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// SensitivityClass tags a field with the protection level its value
// requires. Classes other than ClassNone are defined by the policy document.
type SensitivityClass string

// ClassNone marks a field that needs no protection.
const ClassNone SensitivityClass = "none"

// ProtectionRule binds a sensitivity class to a protection action, an
// algorithm, key material, and the roles authorized to reverse it.
// Rules are immutable once loaded.
type ProtectionRule struct {
	Class         SensitivityClass
	Action        Action
	Algorithm     string   // EncryptAlgo, HashAlgo, or MaskType per Action
	KeyRef        string   // keyring reference, encrypt action only
	Deterministic bool     // stable ciphertexts for equality matching (aes only)
	Roles         []string // roles allowed to decrypt; empty denies all
}

// pattern is one compiled classification pattern. Patterns with a name
// match against the dotted field path (path.Match globs); patterns with a
// value expression match against the field's canonical string form. When
// both are present, both must match.
type pattern struct {
	class    SensitivityClass
	name     string
	value    *regexp.Regexp
	priority int
	order    int // declaration index, breaks priority ties
}

func (p *pattern) matches(fieldPath, canonical string) bool {
	if p.name != "" {
		ok, err := path.Match(p.name, fieldPath)
		if err != nil || !ok {
			return false
		}
	}
	if p.value != nil && !p.value.MatchString(canonical) {
		return false
	}
	return true
}

// Snapshot is an immutable view of the loaded policy. Classify and protect
// calls hold one snapshot for their whole duration, so a concurrent reload
// is never partially visible.
type Snapshot struct {
	rules    map[SensitivityClass]ProtectionRule
	patterns []pattern // sorted: priority descending, declaration order ascending
	version  uint64
	loadedAt time.Time
}

// Version returns the snapshot's monotonically increasing generation.
func (s *Snapshot) Version() uint64 { return s.version }

// LoadedAt returns when the snapshot was published.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// RuleFor returns the protection rule for a class.
func (s *Snapshot) RuleFor(class SensitivityClass) (ProtectionRule, error) {
	rule, ok := s.rules[class]
	if !ok {
		return ProtectionRule{}, &UnknownClassError{Class: class}
	}
	return rule, nil
}

// Source supplies policy document bytes. Implementations may block on I/O
// and must honor the context.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// BytesSource is a fixed in-memory policy document.
type BytesSource []byte

// Fetch returns the document bytes.
func (b BytesSource) Fetch(_ context.Context) ([]byte, error) {
	return b, nil
}

// Store loads protection policy from a Source and publishes immutable
// snapshots. Reads never block: the active snapshot is swapped atomically
// and reload is the only writer. A failed reload leaves the previous
// snapshot active.
type Store struct {
	source Source

	mu   sync.Mutex // serializes reloads; protects only the swap
	snap atomic.Pointer[Snapshot]
}

// NewStore creates a store and performs the initial load. A failure at
// this point is fatal: there is no previous snapshot to fall back to.
func NewStore(ctx context.Context, source Source) (*Store, error) {
	s := &Store{source: source}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the active policy snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Reload fetches and validates the policy document, then atomically swaps
// the active snapshot. On any error the previous snapshot stays active and
// the error is returned.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snap.Load()
	var version uint64 = 1
	var prevVersion uint64
	if prev != nil {
		version = prev.version + 1
		prevVersion = prev.version
	}

	data, err := s.source.Fetch(ctx)
	if err != nil {
		err = wrapDeadline(fmt.Errorf("fetch policy: %w", err))
		emitPolicyReloadFailed(ctx, prevVersion, err)
		return err
	}

	next, err := parsePolicy(data, version)
	if err != nil {
		emitPolicyReloadFailed(ctx, prevVersion, err)
		return err
	}

	s.snap.Store(next)
	emitPolicyReloaded(ctx, next.version)
	return nil
}

// policyDoc is the YAML shape of a policy document.
type policyDoc struct {
	Classes  map[string]ruleSpec `yaml:"classes"`
	Patterns []patternSpec       `yaml:"patterns"`
}

type ruleSpec struct {
	Action        string   `yaml:"action"`
	Algorithm     string   `yaml:"algorithm"`
	Key           string   `yaml:"key"`
	Deterministic bool     `yaml:"deterministic"`
	Roles         []string `yaml:"roles"`
}

type patternSpec struct {
	Class    string `yaml:"class"`
	Name     string `yaml:"name"`
	Value    string `yaml:"value"`
	Priority int    `yaml:"priority"`
}

// parsePolicy validates everything up front so classification is total at
// runtime: malformed globs and regexps are rejected here, and every pattern
// must reference a defined class.
func parsePolicy(data []byte, version uint64) (*Snapshot, error) {
	var doc policyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Reason: err.Error(), Pattern: -1}
	}

	rules := make(map[SensitivityClass]ProtectionRule, len(doc.Classes)+1)
	rules[ClassNone] = ProtectionRule{Class: ClassNone}

	for name, spec := range doc.Classes {
		class := SensitivityClass(name)
		if class == "" || class == ClassNone {
			return nil, &ConfigError{Reason: "class name reserved or empty", Class: class, Pattern: -1}
		}
		rule, err := buildRule(class, spec)
		if err != nil {
			return nil, err
		}
		rules[class] = rule
	}

	patterns := make([]pattern, 0, len(doc.Patterns))
	for i, spec := range doc.Patterns {
		class := SensitivityClass(spec.Class)
		if _, ok := rules[class]; !ok || class == ClassNone {
			return nil, &ConfigError{Reason: fmt.Sprintf("pattern references undefined class %q", spec.Class), Pattern: i}
		}
		if spec.Name == "" && spec.Value == "" {
			return nil, &ConfigError{Reason: "pattern needs a name glob or a value expression", Pattern: i}
		}
		p := pattern{class: class, name: spec.Name, priority: spec.Priority, order: i}
		if spec.Name != "" {
			if _, err := path.Match(spec.Name, ""); err != nil {
				return nil, &ConfigError{Reason: fmt.Sprintf("invalid name glob %q", spec.Name), Pattern: i}
			}
		}
		if spec.Value != "" {
			re, err := regexp.Compile(spec.Value)
			if err != nil {
				return nil, &ConfigError{Reason: fmt.Sprintf("invalid value expression: %v", err), Pattern: i}
			}
			p.value = re
		}
		patterns = append(patterns, p)
	}

	// Most specific first: higher priority wins, declaration order breaks ties.
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].priority != patterns[j].priority {
			return patterns[i].priority > patterns[j].priority
		}
		return patterns[i].order < patterns[j].order
	})

	return &Snapshot{
		rules:    rules,
		patterns: patterns,
		version:  version,
		loadedAt: time.Now(),
	}, nil
}

func buildRule(class SensitivityClass, spec ruleSpec) (ProtectionRule, error) {
	action := Action(spec.Action)
	if spec.Action == "" {
		action = ActionEncrypt
	}

	rule := ProtectionRule{
		Class:         class,
		Action:        action,
		Algorithm:     spec.Algorithm,
		KeyRef:        spec.Key,
		Deterministic: spec.Deterministic,
		Roles:         append([]string(nil), spec.Roles...),
	}

	switch action {
	case ActionEncrypt:
		if rule.Algorithm == "" {
			rule.Algorithm = string(EncryptAES)
		}
		if !IsValidEncryptAlgo(EncryptAlgo(rule.Algorithm)) {
			return ProtectionRule{}, &ConfigError{Reason: fmt.Sprintf("unknown encryption algorithm %q", rule.Algorithm), Class: class, Pattern: -1}
		}
		if rule.KeyRef == "" {
			return ProtectionRule{}, &ConfigError{Reason: "encrypt action requires a key reference", Class: class, Pattern: -1}
		}
		if rule.Deterministic && EncryptAlgo(rule.Algorithm) != EncryptAES {
			return ProtectionRule{}, &ConfigError{Reason: "deterministic mode requires aes", Class: class, Pattern: -1}
		}
	case ActionHash:
		if !IsValidHashAlgo(HashAlgo(rule.Algorithm)) {
			return ProtectionRule{}, &ConfigError{Reason: fmt.Sprintf("unknown hash algorithm %q", rule.Algorithm), Class: class, Pattern: -1}
		}
	case ActionMask:
		if !IsValidMaskType(MaskType(rule.Algorithm)) {
			return ProtectionRule{}, &ConfigError{Reason: fmt.Sprintf("unknown mask type %q", rule.Algorithm), Class: class, Pattern: -1}
		}
	default:
		return ProtectionRule{}, &ConfigError{Reason: fmt.Sprintf("unknown action %q", spec.Action), Class: class, Pattern: -1}
	}

	return rule, nil
}
