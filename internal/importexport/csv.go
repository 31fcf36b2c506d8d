// Package importexport implements the engine's bulk data movement commands
// (spec §2 "Import/export"): CSV card import, read-only module import, the
// whole-project prefix rename, and AsciiDoc/HTML tree export. Each function
// here operates on an already-locked *project.Project; internal/command
// wraps these with the project's write lock, migration log entry, and
// calculation-engine notification, matching the rest of the command layer
// (spec §5's five-step ordering).
package importexport

import (
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// Row is one parsed CSV data row: the fixed title/cardType/parent columns
// plus every remaining column, keyed by header name, as a raw custom-field
// value still awaiting dataType coercion.
type Row struct {
	Title    string
	CardType string
	Parent   string
	Fields   map[string]string
}

// requiredColumns are the CSV header names importCSV demands; every other
// header is treated as a custom field name on the row's card type.
var requiredColumns = []string{"title", "cardType"}

// ParseCSV reads a header row followed by one data row per card. The
// header must contain "title" and "cardType"; an optional "parent" column
// names the parent card key (empty or absent means cardmodel.RootKey).
// Every other header becomes a custom field keyed by its own name.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, engineerr.Schema("importexport.ParseCSV", "", err)
	}
	if len(records) == 0 {
		return nil, engineerr.Validation("importexport.ParseCSV", "", fmt.Errorf("empty CSV input"))
	}
	header := records[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, want := range requiredColumns {
		if _, ok := index[want]; !ok {
			return nil, engineerr.Validation("importexport.ParseCSV", "", fmt.Errorf("missing required column %q", want))
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{Fields: map[string]string{}}
		for h, i := range index {
			if i >= len(rec) {
				continue
			}
			val := rec[i]
			switch h {
			case "title":
				row.Title = val
			case "cardType":
				row.CardType = val
			case "parent":
				row.Parent = val
			default:
				row.Fields[h] = val
			}
		}
		if row.Title == "" || row.CardType == "" {
			return nil, engineerr.Validation("importexport.ParseCSV", "", fmt.Errorf("row missing title or cardType"))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportRows creates one card per row beneath its parent (or
// cardmodel.RootKey), coercing each custom field value against its card
// type's declared dataType (spec §8 coercion table), and ranks the new
// cards at the tail of their parent's existing children in row order
// (spec §2 "CSV card import").
func ImportRows(proj *project.Project, rows []Row) ([]*cardmodel.Card, error) {
	created := make([]*cardmodel.Card, 0, len(rows))
	tailRank := map[string]lexorank.Rank{}

	for _, row := range rows {
		parentKey := row.Parent
		if parentKey == "" {
			parentKey = cardmodel.RootKey
		}

		var parentDir string
		if parentKey == cardmodel.RootKey {
			parentDir = paths.CardRoot(proj.Root)
		} else {
			parent, err := proj.Cards.GetCard(parentKey)
			if err != nil {
				return nil, err
			}
			parentDir = parent.Path
		}

		ctName, err := resource.ParseName(row.CardType)
		if err != nil {
			return nil, err
		}
		ctRes, err := proj.Resources.ByName(ctName)
		if err != nil {
			return nil, engineerr.NotFound("importexport.ImportRows", row.CardType)
		}
		ct, ok := ctRes.Content.(*resource.CardType)
		if !ok {
			return nil, engineerr.Validation("importexport.ImportRows", row.CardType, fmt.Errorf("not a cardType resource"))
		}
		byName := make(map[string]resource.DataType, len(ct.CustomFields))
		for _, f := range ct.CustomFields {
			byName[f.Name] = resource.DataType(f.DataType)
		}

		fields := make(map[string]any, len(row.Fields))
		for k, raw := range row.Fields {
			dt, known := byName[k]
			if !known {
				return nil, engineerr.Validation("importexport.ImportRows", k, fmt.Errorf("cardType %s has no custom field %q", row.CardType, k))
			}
			fields[k] = calc.Coerce(dt, raw)
		}

		rank, hasRank := tailRank[parentKey]
		if !hasRank {
			for _, existing := range proj.Cards.GetCards(cardmodel.ProjectLocation) {
				if existing.Parent != parentKey {
					continue
				}
				if !hasRank || lexorank.Less(rank, existing.Metadata.Rank) {
					rank = existing.Metadata.Rank
					hasRank = true
				}
			}
		}
		if hasRank {
			rank = lexorank.After(rank)
		} else {
			rank = lexorank.After("")
		}
		tailRank[parentKey] = rank

		key, err := nextCardKey(proj.Config.CardKeyPrefix, proj.Cards.HasCard)
		if err != nil {
			return nil, err
		}
		card := &cardmodel.Card{
			Key:      key,
			Path:     paths.CardChildDir(parentDir, key),
			Parent:   parentKey,
			Location: cardmodel.ProjectLocation,
			Metadata: cardmodel.Metadata{
				Title:         row.Title,
				CardType:      row.CardType,
				WorkflowState: "",
				Rank:          rank,
				CustomFields:  fields,
			},
		}
		if wf, _, err := initialWorkflowState(proj, ct); err == nil {
			card.Metadata.WorkflowState = wf
		}
		if err := cardcache.PersistCard(card); err != nil {
			return nil, err
		}
		proj.Cards.UpdateCard(card)
		created = append(created, card)
	}
	return created, nil
}

// initialWorkflowState resolves ct's workflow and returns its single
// initial-category state, so CSV-imported cards start in the same state a
// createCard-instantiated card would.
func initialWorkflowState(proj *project.Project, ct *resource.CardType) (string, bool, error) {
	wfName, err := resource.ParseName(ct.Workflow)
	if err != nil {
		return "", false, err
	}
	r, err := proj.Resources.ByName(wfName)
	if err != nil {
		return "", false, err
	}
	wf, ok := r.Content.(*resource.Workflow)
	if !ok {
		return "", false, engineerr.Validation("importexport.initialWorkflowState", ct.Workflow, fmt.Errorf("not a workflow resource"))
	}
	state, ok := wf.InitialState()
	return state, ok, nil
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// nextCardKey mirrors internal/command's key synthesis. Duplicated rather
// than imported from internal/command, since internal/command will import
// this package to wrap its functions with the write lock and migration
// log, and Go forbids the reverse import.
func nextCardKey(prefix string, exists func(string) bool) (string, error) {
	for attempt := 0; attempt < 8; attempt++ {
		suffix, err := randomBase36(8)
		if err != nil {
			return "", engineerr.Filesystem("importexport.nextCardKey", prefix, err)
		}
		key := fmt.Sprintf("%s_%s", prefix, suffix)
		if !exists(key) {
			return key, nil
		}
	}
	return "", engineerr.Invariant("importexport.nextCardKey", prefix, "exhausted retries generating a unique card key")
}

func randomBase36(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out), nil
}
