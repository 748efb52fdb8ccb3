package registry

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"restoctl/internal/domain"
)

// UserDefinedSuffix is appended to a user-defined server's name when a
// software upgrade introduces a predefined server with the same name.
const UserDefinedSuffix = "_user_defined"

// Report summarizes what one migration run changed.
type Report struct {
	Added    []string          `json:"added,omitempty"`
	Removed  []string          `json:"removed,omitempty"`
	Renamed  map[string]string `json:"renamed,omitempty"`
	BackedUp []string          `json:"backedUp,omitempty"`
}

// Empty reports whether the migration changed nothing.
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Renamed) == 0 && len(r.BackedUp) == 0
}

// Migrate reconciles a loaded registry snapshot against the current built-in
// predefined set and returns the upgraded registry. The predefined entries
// are replaced wholesale; user-defined entries survive with their status and
// cache, getting renamed or set aside in a backup when they cannot be
// inserted as they are. The resulting registry (and the backup, when
// non-empty) is persisted before returning.
func Migrate(loaded Snapshot, currentPredefined []domain.ServerDefinition, persist Persister, logger *zap.Logger) (*Registry, Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("migration")

	reg := New(persist, logger)
	report := Report{Renamed: make(map[string]string)}

	currentNames := make(map[string]struct{}, len(currentPredefined))
	for _, srv := range currentPredefined {
		currentNames[domain.CanonicalName(srv.Name)] = struct{}{}
	}

	loadedPredefined := make(map[string]struct{})
	var loadedUserDefined []domain.ServerDefinition
	for _, srv := range loaded.Servers {
		if srv.Origin == domain.OriginPredefined {
			loadedPredefined[domain.CanonicalName(srv.Name)] = struct{}{}
		} else {
			loadedUserDefined = append(loadedUserDefined, srv)
		}
	}

	// Retired names accumulate across upgrades. A name reintroduced as
	// predefined leaves the retired set: it is live again, and it will be
	// retired anew if dropped later.
	for _, name := range loaded.Retired {
		reg.retired[domain.CanonicalName(name)] = struct{}{}
	}
	for name := range loadedPredefined {
		if _, stillShipped := currentNames[name]; !stillShipped {
			reg.retired[name] = struct{}{}
			report.Removed = append(report.Removed, name)
		}
	}
	for name := range currentNames {
		delete(reg.retired, name)
	}

	// The predefined set is never merged field by field; each entry is
	// recreated fresh so definition changes fully take effect.
	for _, srv := range currentPredefined {
		fresh := srv.Clone()
		fresh.Origin = domain.OriginPredefined
		fresh.Status = domain.StatusNeverReached
		fresh.Cache = domain.ServerCache{}
		normalized, err := fresh.Normalize()
		if err != nil {
			return nil, Report{}, err
		}
		reg.insert(normalized)
		if _, existed := loadedPredefined[normalized.Name]; !existed {
			report.Added = append(report.Added, normalized.Name)
		}
	}

	var backup []domain.ServerDefinition
	for _, srv := range loadedUserDefined {
		normalized, err := srv.Normalize()
		if err != nil {
			logger.Warn("user-defined server no longer valid, moving to backup",
				zap.String("server", srv.Name),
				zap.Error(err),
			)
			backup = append(backup, srv)
			report.BackedUp = append(report.BackedUp, domain.CanonicalName(srv.Name))
			continue
		}

		name := normalized.Name
		if _, taken := reg.servers[name]; taken {
			renamed := name
			for {
				renamed += UserDefinedSuffix
				if _, stillTaken := reg.servers[renamed]; !stillTaken {
					break
				}
			}
			logger.Warn("user-defined server renamed, name is now predefined",
				zap.String("from", name),
				zap.String("to", renamed),
			)
			report.Renamed[name] = renamed
			normalized.Name = renamed
		}
		reg.insert(normalized)
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.BackedUp)
	if len(report.Renamed) == 0 {
		report.Renamed = nil
	}

	if err := reg.save("migrate registry"); err != nil {
		return nil, Report{}, err
	}
	if len(backup) > 0 && persist != nil {
		b := Backup{SavedAt: time.Now(), Servers: backup}
		if err := persist.SaveBackup(b); err != nil {
			return nil, Report{}, domain.Wrap(domain.CodePersistence, "save migration backup", err)
		}
	}

	if !report.Empty() {
		logger.Info("registry migrated",
			zap.Strings("added", report.Added),
			zap.Strings("removed", report.Removed),
			zap.Any("renamed", report.Renamed),
			zap.Strings("backedUp", report.BackedUp),
		)
	}
	return reg, report, nil
}
