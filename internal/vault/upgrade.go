package vault

import "fmt"

// checkUpgrade validates replacing current with next: strictly newer version
// and a reserved slot layout that extends the current one.
func checkUpgrade(current, next Logic) error {
	switch {
	case next.Version() == current.Version():
		return fmt.Errorf("%w: version %d", ErrAlreadyUpgraded, next.Version())
	case next.Version() < current.Version():
		return fmt.Errorf("%w: %d < %d", ErrVersionDowngrade, next.Version(), current.Version())
	}
	return checkLayout(current.Slots(), next.Slots())
}

// checkLayout requires next to keep every slot of current at the same index
// and to fit in the reserved capacity.
func checkLayout(current, next []string) error {
	if len(next) > ReservedSlots {
		return fmt.Errorf("%w: %d slots exceed the %d reserved", ErrLayoutMismatch, len(next), ReservedSlots)
	}
	if len(next) < len(current) {
		return fmt.Errorf("%w: drops slots %v", ErrLayoutMismatch, current[len(next):])
	}
	for i, name := range current {
		if next[i] != name {
			return fmt.Errorf("%w: slot %d is %q, was %q", ErrLayoutMismatch, i, next[i], name)
		}
	}
	return nil
}

// upgrade binds the logic registered under version and runs its migration
// inside the caller's transaction. The active logic authorizes first.
func upgrade(e *Env, current Logic, registry map[int]Logic, version int, payload []byte) error {
	if err := current.AuthorizeUpgrade(e); err != nil {
		return err
	}
	next, ok := registry[version]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLogic, version)
	}
	if err := checkUpgrade(current, next); err != nil {
		return err
	}
	g, err := e.Global()
	if err != nil {
		return err
	}
	g.LogicVersion = next.Version()
	if err := e.PutGlobal(g); err != nil {
		return err
	}
	return next.Migrate(e, current.Version(), payload)
}
