// Command worldlint loads a world content directory and reports referential
// problems: exits to unknown locations, spawn groups and shop listings
// naming missing templates, creation options without skills. Run it before
// deploying edited world files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"questweaver/internal/domain/worlddata"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "./worlds", "world content directory")
	flag.Parse()

	catalog, err := worlddata.LoadDir(dir)
	if err != nil {
		log.Fatalf("load worlds: %v", err)
	}

	problems := 0
	for _, name := range catalog.Names() {
		w, _ := catalog.World(name)
		for _, p := range lintWorld(w) {
			fmt.Printf("%s: %s\n", name, p)
			problems++
		}
	}
	if problems > 0 {
		fmt.Printf("%d problem(s) found\n", problems)
		os.Exit(1)
	}
	fmt.Printf("%d world(s) ok\n", len(catalog.Names()))
}

func lintWorld(w worlddata.World) []string {
	var out []string

	if w.StartLocationID == "" {
		out = append(out, "missing start_location_id")
	} else if _, ok := w.Locations[w.StartLocationID]; !ok {
		out = append(out, fmt.Sprintf("start_location_id %q is not a location", w.StartLocationID))
	}

	for id, loc := range w.Locations {
		for _, exit := range loc.Exits {
			if _, ok := w.Locations[exit]; !ok {
				out = append(out, fmt.Sprintf("location %q: exit %q is not a location", id, exit))
			}
		}
		for _, npc := range loc.NPCs {
			if _, ok := w.NPCs[npc]; !ok {
				out = append(out, fmt.Sprintf("location %q: npc %q has no template", id, npc))
			}
		}
		for _, req := range loc.Requirements {
			switch req.Type {
			case "item":
				if _, ok := w.Items[req.ID]; !ok {
					out = append(out, fmt.Sprintf("location %q: requirement item %q has no template", id, req.ID))
				}
			case "quest":
				if _, ok := w.Quests[req.ID]; !ok {
					out = append(out, fmt.Sprintf("location %q: requirement quest %q has no template", id, req.ID))
				}
			default:
				out = append(out, fmt.Sprintf("location %q: unknown requirement type %q", id, req.Type))
			}
		}
		if ev := loc.OnEnter; ev != nil {
			for _, g := range ev.Enemies {
				if _, ok := w.Enemies[g.ID]; !ok {
					out = append(out, fmt.Sprintf("location %q: on_enter enemy %q has no template", id, g.ID))
				}
			}
		}
	}

	for id, enemy := range w.Enemies {
		for _, item := range enemy.Rewards.Items {
			if _, ok := w.Items[item]; !ok {
				out = append(out, fmt.Sprintf("enemy %q: reward item %q has no template", id, item))
			}
		}
	}

	for id, shop := range w.Shops {
		if shop.LocationID != "" {
			if _, ok := w.Locations[shop.LocationID]; !ok {
				out = append(out, fmt.Sprintf("shop %q: location %q is not a location", id, shop.LocationID))
			}
		}
		for _, listing := range shop.Listings {
			if _, ok := w.Items[listing.Item]; !ok {
				out = append(out, fmt.Sprintf("shop %q: listing %q has no item template", id, listing.Item))
			}
		}
	}

	for id, puzzle := range w.Puzzles {
		if _, ok := w.Locations[puzzle.LocationID]; !ok {
			out = append(out, fmt.Sprintf("puzzle %q: location %q is not a location", id, puzzle.LocationID))
		}
	}

	for _, class := range w.CreationOptions.Classes {
		if len(class.Skills) == 0 {
			out = append(out, fmt.Sprintf("class %q has no skills", class.Name))
		}
	}

	return out
}
