package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// newFixture scaffolds a project with one card type (backed by a
// three-state workflow and two integer custom fields, one of them
// calculated), one link type, and two sibling cards, returning the opened
// project and its Commands wrapper.
func newFixture(t *testing.T) (*project.Project, *Commands) {
	t.Helper()
	root := t.TempDir()

	proj, err := project.Create(root, "Fixture Project", "dec")
	require.NoError(t, err)

	env := proj.Env()
	workflow := &resource.Workflow{
		States: []resource.WorkflowState{
			{Name: "Draft", Category: resource.CategoryInitial},
			{Name: "Done", Category: resource.CategoryClosed},
			{Name: "Rejected", Category: resource.CategoryClosed},
		},
		Transitions: []resource.WorkflowTransition{
			{Name: "finish", FromState: []string{"Draft"}, ToState: "Done"},
			{Name: "reject", FromState: []string{"Draft"}, ToState: "Rejected"},
		},
	}
	wfName := resource.Name{Prefix: "dec", Kind: resource.KindWorkflow, Identifier: "basic"}
	_, err = resource.Create(env, wfName, workflow)
	require.NoError(t, err, "create workflow")

	cardType := &resource.CardType{
		Workflow: wfName.String(),
		CustomFields: []resource.FieldRef{
			{Name: "priority", DataType: "integer", DisplayName: "Priority"},
			{Name: "score", DataType: "integer", DisplayName: "Score", Calculated: true},
		},
	}
	ctName := resource.Name{Prefix: "dec", Kind: resource.KindCardType, Identifier: "decision"}
	_, err = resource.Create(env, ctName, cardType)
	require.NoError(t, err, "create cardType")

	linkType := &resource.LinkType{
		OutboundDisplayName: "relates to",
		InboundDisplayName:  "related from",
	}
	ltName := resource.Name{Prefix: "dec", Kind: resource.KindLinkType, Identifier: "relatesTo"}
	_, err = resource.Create(env, ltName, linkType)
	require.NoError(t, err, "create linkType")

	writeCard(t, root, "dec_aaa1", cardmodel.RootKey, ctName.String(), "0|m")
	writeCard(t, root, "dec_aaa2", cardmodel.RootKey, ctName.String(), "0|n")

	proj, err = project.Open(root)
	require.NoError(t, err, "project.Open after fixture setup")
	return proj, New(proj)
}

func writeCard(t *testing.T, root, key, parent, cardType, rank string) {
	t.Helper()
	dir := paths.CardDir(root, key)
	card := &cardmodel.Card{
		Key:      key,
		Path:     dir,
		Parent:   parent,
		Location: cardmodel.ProjectLocation,
		Metadata: cardmodel.Metadata{
			Title:         "Card " + key,
			CardType:      cardType,
			WorkflowState: "Draft",
			Rank:          lexorank.Rank(rank),
			LastUpdated:   time.Now(),
		},
		Content: "original content",
	}
	require.NoError(t, cardcache.PersistCard(card), "persist fixture card %s", key)
}

func TestEditCardContent(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.EditCardContent("dec_aaa1", "updated content"))

	card, err := cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	require.Equal(t, "updated content", card.Content)
}

func TestEditCardMetadataCoercesAndPersists(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.EditCardMetadata(context.Background(), "dec_aaa1", "priority", "5"))

	card, err := cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	require.Equal(t, int64(5), card.Metadata.CustomFields["priority"])
}

func TestEditCardMetadataRejectsUnknownField(t *testing.T) {
	_, cmds := newFixture(t)
	err := cmds.EditCardMetadata(context.Background(), "dec_aaa1", "notAField", "x")
	require.Error(t, err, "expected error for unknown field")
}

func TestEditCardMetadataRefusesCalculatedField(t *testing.T) {
	_, cmds := newFixture(t)
	err := cmds.EditCardMetadata(context.Background(), "dec_aaa1", "score", "9")
	require.Error(t, err, "expected editing a calculated field to be refused")
}

func TestTransitionAppliesWorkflowState(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.Transition(context.Background(), "dec_aaa1", "finish"))

	card, err := cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	require.Equal(t, "Done", card.Metadata.WorkflowState)
	require.NotNil(t, card.Metadata.LastTransitioned)
}

func TestTransitionToSameStateIsIdempotent(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.Transition(context.Background(), "dec_aaa1", "finish"), "first transition")

	err := cmds.Transition(context.Background(), "dec_aaa1", "finish")
	require.NoError(t, err, "expected re-transitioning to the card's current state to no-op")
}

func TestTransitionRefusesDisallowedFromState(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.Transition(context.Background(), "dec_aaa1", "finish"), "first transition")

	err := cmds.Transition(context.Background(), "dec_aaa1", "reject")
	require.Error(t, err, "expected reject (fromState Draft only) to fail once the card is Done")
}

func TestRankFirstMovesCardAheadOfSiblings(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.RankFirst("dec_aaa2"))

	a1, err := cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	a2, err := cmds.proj.Cards.GetCard("dec_aaa2")
	require.NoError(t, err)
	require.True(t, lexorank.Less(a2.Metadata.Rank, a1.Metadata.Rank),
		"expected dec_aaa2 rank (%s) before dec_aaa1 rank (%s)", a2.Metadata.Rank, a1.Metadata.Rank)
}

func TestCreateAndRemoveLink(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.CreateLink("dec_aaa1", "dec_aaa2", "dec/linkTypes/relatesTo", ""))

	card, err := cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	require.True(t, card.HasLink(cardmodel.Link{LinkType: "dec/linkTypes/relatesTo", CardKey: "dec_aaa2"}),
		"expected link to be recorded")

	err = cmds.CreateLink("dec_aaa1", "dec_aaa1", "dec/linkTypes/relatesTo", "")
	require.Error(t, err, "expected self-link to be refused")

	require.NoError(t, cmds.RemoveLink("dec_aaa1", "dec_aaa2", "dec/linkTypes/relatesTo", ""))

	card, err = cmds.proj.Cards.GetCard("dec_aaa1")
	require.NoError(t, err)
	require.False(t, card.HasLink(cardmodel.Link{LinkType: "dec/linkTypes/relatesTo", CardKey: "dec_aaa2"}),
		"expected link to be removed")
}

func TestRemoveCardDeletesFromCacheAndDisk(t *testing.T) {
	_, cmds := newFixture(t)
	require.NoError(t, cmds.RemoveCard("dec_aaa2"))
	require.False(t, cmds.proj.Cards.HasCard("dec_aaa2"), "expected dec_aaa2 to be removed from cache")
}

func TestValidateReportsNoFindingsForWellFormedCards(t *testing.T) {
	_, cmds := newFixture(t)
	findings, err := cmds.Validate(context.Background())
	require.NoError(t, err)
	for _, f := range findings {
		require.NotContains(t, []string{"dec_aaa1", "dec_aaa2"}, f.Target,
			"did not expect a finding for a well-formed fixture card: %+v", f)
	}
}
