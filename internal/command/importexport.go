package command

import (
	"context"
	"io"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/importexport"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// ImportCSV parses r as a header-plus-rows CSV document and creates one
// card per row (spec §2 "CSV card import"), then notifies the calculation
// engine the same way createCard does.
func (c *Commands) ImportCSV(ctx context.Context, r io.Reader) ([]*cardmodel.Card, error) {
	c.proj.Lock()
	defer c.proj.Unlock()

	rows, err := importexport.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	created, err := importexport.ImportRows(c.proj, rows)
	if err != nil {
		return nil, err
	}
	for _, card := range created {
		if err := c.log(projectconfig.OpResourceCreate, card.Key, map[string]any{"source": "csv-import"}); err != nil {
			return nil, err
		}
	}
	if err := c.proj.Engine.HandleNewCards(created); err != nil {
		return nil, err
	}
	return created, nil
}

// ImportModule copies sourcePath's resources read-only into
// ".cards/modules/<prefix>" (spec §4.4 "importModule(sourcePath)").
func (c *Commands) ImportModule(sourcePath string) (string, error) {
	c.proj.Lock()
	defer c.proj.Unlock()

	prefix, err := importexport.ImportModule(c.proj, sourcePath)
	if err != nil {
		return "", err
	}
	if err := c.log(projectconfig.OpModuleAdd, prefix, map[string]string{"location": sourcePath}); err != nil {
		return "", err
	}
	return prefix, c.proj.Engine.Generate("")
}

// RemoveModule removes a previously imported module.
func (c *Commands) RemoveModule(prefix string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	if err := importexport.RemoveModule(c.proj, prefix); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpModuleRemove, prefix, nil); err != nil {
		return err
	}
	return c.proj.Engine.Generate("")
}

// Rename rewrites the project's card key prefix end to end (spec §4.4
// "rename(newPrefix)").
func (c *Commands) Rename(newPrefix string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	oldPrefix := c.proj.Config.CardKeyPrefix
	if err := importexport.Rename(c.proj, newPrefix); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpProjectRename, oldPrefix, map[string]string{"newPrefix": newPrefix}); err != nil {
		return err
	}
	return c.proj.Engine.Generate("")
}

// ExportADoc writes an AsciiDoc file tree for every project card whose
// export path matches pattern (spec §2 "AsciiDoc ... tree export").
func (c *Commands) ExportADoc(destDir, pattern string) (int, error) {
	return importexport.ExportADoc(c.proj, destDir, pattern)
}

// ExportHTML renders an HTML file tree for every project card whose export
// path matches pattern (spec §2 "... /HTML tree export").
func (c *Commands) ExportHTML(ctx context.Context, destDir, pattern string) (int, []error) {
	return importexport.ExportHTML(ctx, c.proj, destDir, pattern)
}
