package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/bibkit/bibmatch/internal/briefrec"
	"github.com/bibkit/bibmatch/internal/checksum"
	"github.com/bibkit/bibmatch/internal/marc"
	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/models"
	"github.com/bibkit/bibmatch/internal/store"
)

// UnionDir is the data-root subdirectory holding union catalog
// candidates; every other subdirectory is an institution collection.
const UnionDir = "union"

// Sync walks the data directory and brings the store up to date:
//   - new/changed record files are parsed and upserted
//   - files removed from disk are deleted from the store
func Sync(db store.Store, fsys Provider, logger *slog.Logger) error {
	metas, err := fsys.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllSourceChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := fsys.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := importFile(db, m.Path, data); err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: imported", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteBySource(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// importFile parses one record file and upserts it into the store. The
// first path segment selects the target: the union directory feeds the
// candidate pool, any other directory is an institution collection.
func importFile(db store.Store, srcPath string, data []byte) error {
	rel := filepath.ToSlash(srcPath)
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) < 2 {
		return fmt.Errorf("record file outside a collection directory: %s", srcPath)
	}
	if parts[0] == UnionDir {
		return importCandidate(db, srcPath, data)
	}
	return importLocal(db, parts[0], srcPath, data)
}

func importCandidate(db store.Store, srcPath string, data []byte) error {
	var (
		rec    *marc.Record
		candID string
		err    error
	)
	if strings.HasSuffix(srcPath, ".xml") {
		rec, err = marc.ParseXML(data)
	} else {
		var doc models.UnionDocument
		if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil && doc.MMSID != "" {
			candID = doc.MMSID
		}
		rec, err = marc.FromDocument(data)
	}
	if err != nil {
		return fmt.Errorf("parse candidate: %w", err)
	}
	if candID == "" {
		candID = rec.ControlField("001")
	}
	if candID == "" {
		candID = fileStem(srcPath)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return db.UpsertCandidate(store.CandidateRow{
		CandID:         candID,
		MARC:           raw,
		SourcePath:     srcPath,
		SourceChecksum: checksum.Sum(data),
	})
}

func importLocal(db store.Store, collection, srcPath string, data []byte) error {
	var doc models.LocalDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse record: %w", err)
	}
	if doc.RecID == "" {
		doc.RecID = fileStem(srcPath)
	}

	brief := doc.Brief
	if len(brief) == 0 {
		rec, err := marc.FromDocument(doc.Full)
		if err != nil {
			return fmt.Errorf("derive brief: %w", err)
		}
		brief, err = json.Marshal(briefrec.FromMARC(rec))
		if err != nil {
			return err
		}
	}

	br := briefrec.FromDocument(brief)
	title := ""
	if br.ShortTitle != nil {
		title = *br.ShortTitle
	}

	if doc.PossibleMatches == nil {
		doc.PossibleMatches = []string{}
	}
	return db.UpsertRecord(store.RecordRow{
		Collection:      collection,
		RecID:           doc.RecID,
		Title:           title,
		Brief:           brief,
		Full:            doc.Full,
		PossibleMatches: doc.PossibleMatches,
		Decision:        matchsvc.InitialDecision(len(doc.PossibleMatches)),
		SourcePath:      srcPath,
		SourceChecksum:  checksum.Sum(data),
	})
}

// fileStem returns the file name without directory or extension.
func fileStem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
