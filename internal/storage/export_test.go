package storage

// SetAfterStage installs a hook that runs once the staging file is written.
func SetAfterStage(s *FileStore, fn func(tmpPath string) error) {
	s.afterStage = fn
}

var ListPattern = listPattern
