package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

func TestRemoveResourceRefusesCardTypeInUse(t *testing.T) {
	_, cmds := newFixture(t)
	ctName := resource.Name{Prefix: "dec", Kind: resource.KindCardType, Identifier: "decision"}

	err := cmds.RemoveResource(ctName, false)
	require.Error(t, err, "expected RemoveResource to refuse a card type still used by cards")

	require.NoError(t, cmds.RemoveResource(ctName, true), "expected force=true to override the usage check")
}

func TestRemoveResourceRefusesReportReferencedByCardContent(t *testing.T) {
	proj, cmds := newFixture(t)

	reportName := resource.Name{Prefix: "dec", Kind: resource.KindReport, Identifier: "byOwner"}
	report := &resource.Report{ContentFiles: map[string]string{"query.lp.hbs": "card(X) :- card(X)."}}
	_, err := cmds.CreateResource(reportName, report)
	require.NoError(t, err, "create report")

	require.NoError(t, proj.Cards.UpdateCardContent("dec_aaa1", "See report dec/reports/byOwner for the current breakdown."))

	err = cmds.RemoveResource(reportName, false)
	require.Error(t, err, "expected RemoveResource to refuse a report referenced by card content")
}

func TestRemoveResourceAllowsUnreferencedReport(t *testing.T) {
	_, cmds := newFixture(t)

	reportName := resource.Name{Prefix: "dec", Kind: resource.KindReport, Identifier: "unused"}
	report := &resource.Report{ContentFiles: map[string]string{"query.lp.hbs": "card(X) :- card(X)."}}
	_, err := cmds.CreateResource(reportName, report)
	require.NoError(t, err, "create report")

	require.NoError(t, cmds.RemoveResource(reportName, false), "expected unreferenced report to be removable")
}
