package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/user/moviecatalog/internal/repository"
)

// CleanupService removes uploaded images that no row references any more,
// which happens when an image field is replaced or its row is deleted.
type CleanupService struct {
	repos    *repository.Repositories
	media    *MediaStore
	log      hclog.Logger
	interval time.Duration
	// files younger than grace are never removed
	grace time.Duration
	now   func() time.Time
}

func NewCleanupService(repos *repository.Repositories, media *MediaStore, log hclog.Logger) *CleanupService {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &CleanupService{
		repos:    repos,
		media:    media,
		log:      log.Named("cleanup"),
		interval: 24 * time.Hour,
		grace:    time.Hour,
		now:      time.Now,
	}
}

// Start runs a sweep right away and then once per interval until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		s.runCleanup(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCleanup(ctx)
			}
		}
	}()
}

func (s *CleanupService) runCleanup(ctx context.Context) {
	s.log.Info("sweeping orphaned media")
	removed, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("media sweep failed", "error", err)
		return
	}
	s.log.Info("media sweep done", "removed", removed)
}

// Sweep deletes unreferenced files older than the grace period from the
// upload folders and returns how many were removed.
func (s *CleanupService) Sweep(ctx context.Context) (int, error) {
	refs, err := s.repos.MediaRefs(ctx)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]struct{}, len(refs))
	for _, url := range refs {
		if rel, ok := s.media.Rel(url); ok {
			keep[rel] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	root := s.media.Root()
	for _, folder := range UploadFolders {
		dir := filepath.Join(root, folder)
		err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && p == dir {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return ctx.Err()
			}

			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			if _, ok := keep[filepath.ToSlash(rel)]; ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.ModTime().After(cutoff) {
				return nil
			}
			if err := os.Remove(p); err != nil {
				return err
			}
			s.log.Debug("removed orphaned media", "path", rel)
			removed++
			return nil
		})
		if err != nil {
			break
		}
	}
	return removed, err
}
