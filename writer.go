package crownconv

import (
	"encoding/json"
	"os"

	"github.com/nrac-wvu/crownconv/log"
	"github.com/nrac-wvu/crownconv/utils"

	"go.uber.org/zap"
)

// WriteDocument serializes the document to path atomically: the JSON lands
// in a uniquely named sibling file first, is synced to disk, and is renamed
// over the target only after a complete write, so a failed run never leaves
// a truncated document and a crash right after the rename cannot surface
// unsynced content.
func WriteDocument(path string, doc *Document) (err error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return
	}
	data = append(data, '\n')
	tmp := utils.GetTmpFilePath(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return
	}
	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if e := f.Close(); err == nil {
		err = e
	}
	if err != nil {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return
	}
	log.Info("document written", zap.String("path", path), zap.Int("bytes", len(data)))
	return
}
