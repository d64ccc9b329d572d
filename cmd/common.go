package cmd

import (
	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/C-Sto/goesedb/pkg/logger"
	"go.uber.org/zap"
)

// open opens the database at path with the reader settings from s.
func open(path string, s Settings) (*esent.File, *zap.Logger, error) {
	log, err := logger.New(s.Debug)
	if err != nil {
		return nil, nil, err
	}
	f, err := esent.Open(path, readerConfig(s, log))
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	return f, log, nil
}

func readerConfig(s Settings, log *zap.Logger) *esent.Config {
	return &esent.Config{
		Codepage:      s.Codepage,
		PageCacheSize: s.PageCacheSize,
		Logger:        log,
	}
}
