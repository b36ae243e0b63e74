// Package storage manages the flat output directory of a harvesting run.
//
// Every file is written atomically: data goes to a temporary sibling first
// and is renamed into place, so an interrupted run never leaves a
// half-written image or manifest behind.
//
// Usage:
//
//	manager, err := storage.NewManager("harvest_output")
//	if err != nil {
//	    return err
//	}
//	path, err := manager.Write("001-Sunset-orig"+storage.ExtFromURL(u), bytes.NewReader(data))
package storage
