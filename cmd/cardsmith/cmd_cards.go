package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cardsmith/internal/card"
)

// cardsCmd groups the card management subcommands
var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Inspect and manage saved cards",
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every saved card",
	RunE:  runCardsList,
}

var cardsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one card in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsShow,
}

var cardsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a card from the store and the dashboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsDelete,
}

func runCardsList(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	defs := cat.ListAll()
	if len(defs) == 0 {
		fmt.Println("No cards saved yet. Try 'cardsmith seed' or 'cardsmith generate'.")
		return nil
	}

	fmt.Printf("%-28s %-12s %-5s %s\n", "ID", "TIER", "WIDTH", "TITLE")
	for _, def := range defs {
		title := def.Title
		if def.LoadError != "" {
			title += "  [load error]"
		}
		fmt.Printf("%-28s %-12s %-5d %s\n", def.ID, def.Tier, def.DefaultWidth, title)
	}
	fmt.Printf("\n%d card(s), %d mounted\n", len(defs), cat.Count())
	return nil
}

func runCardsShow(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	id := args[0]
	var def *card.Definition
	for _, d := range cat.ListAll() {
		if d.ID == id {
			def = d
			break
		}
	}
	if def == nil {
		return fmt.Errorf("%w: %s", card.ErrUnknownCardType, id)
	}

	fmt.Printf("ID:          %s\n", def.ID)
	fmt.Printf("Title:       %s\n", def.Title)
	fmt.Printf("Tier:        %s\n", def.Tier)
	fmt.Printf("Width:       %d\n", def.DefaultWidth)
	fmt.Printf("Created:     %s\n", def.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", def.UpdatedAt.Format("2006-01-02 15:04:05"))
	if def.Description != "" {
		fmt.Printf("Description: %s\n", def.Description)
	}
	if def.LoadError != "" {
		fmt.Printf("Load error:  %s\n", def.LoadError)
	}

	switch def.Tier {
	case card.TierDeclarative:
		if def.Declarative == nil {
			break
		}
		cols := make([]string, len(def.Declarative.Columns))
		for i, c := range def.Declarative.Columns {
			cols[i] = c.Field
		}
		fmt.Printf("Layout:      %s\n", def.Declarative.Layout)
		fmt.Printf("Columns:     %s\n", strings.Join(cols, ", "))
		fmt.Printf("Rows:        %d\n", len(def.Declarative.StaticData))
		if len(def.Declarative.SearchFields) > 0 {
			fmt.Printf("Search:      %s\n", strings.Join(def.Declarative.SearchFields, ", "))
		}
	case card.TierCode:
		if def.Code == nil {
			break
		}
		if def.Code.SourceHash != "" {
			fmt.Printf("Source hash: %s\n", def.Code.SourceHash)
		}
		fmt.Printf("\n%s\n", def.Code.SourceCode)
	}
	return nil
}

func runCardsDelete(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	id := args[0]
	if err := cat.Delete(cmd.Context(), id); err != nil {
		if errors.Is(err, card.ErrUnknownCardType) {
			return fmt.Errorf("no card with id %s", id)
		}
		return err
	}

	fmt.Printf("Deleted card %s\n", id)
	return nil
}
