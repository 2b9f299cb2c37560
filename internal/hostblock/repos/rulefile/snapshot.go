package rulefile

import (
	"os"
	"time"
)

// Snapshot is a change-detection fingerprint of the rule file: modification
// time (to the finest resolution the filesystem offers) and size. It says
// nothing about content; two writes producing identical metadata are
// indistinguishable, which is an accepted limitation of the heuristic.
type Snapshot struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two snapshots carry the same fingerprint.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.Size == other.Size && s.ModTime.Equal(other.ModTime)
}

// IsZero reports whether the snapshot has never been captured.
func (s Snapshot) IsZero() bool {
	return s.Size == 0 && s.ModTime.IsZero()
}

// Stat captures a Snapshot of the file at path.
func Stat(path string) (Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ModTime: info.ModTime(), Size: info.Size()}, nil
}
