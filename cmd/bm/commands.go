package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/culler"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/exporter"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/importer"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/picker"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/search"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/transfer"
)

var errRejected = errors.New("rejected")

// update runs fn and turns a false result into an error naming what failed.
func update(e *env, what string, fn func(s *model.Store) bool) error {
	changed, err := e.lib.Update(context.Background(), fn)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%s: %w", what, errRejected)
	}
	return nil
}

func view(e *env, fn func(s *model.Store)) error {
	return e.lib.View(fn)
}

// runQuickSearch performs a fuzzy search and opens the selected bookmark.
func runQuickSearch(e *env, a *args) error {
	query := strings.Join(a.pos, " ")
	var results []search.SearchResult
	if err := view(e, func(s *model.Store) { results = search.Search(s, query) }); err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return nil
	}

	var selected model.KeyedBookmark
	if len(results) == 1 {
		// Single result - select it directly
		selected = results[0].Bookmark
		fmt.Printf("Opening: %s\n", selected.Title)
	} else {
		program := tea.NewProgram(picker.New(results, query))
		finalModel, err := program.Run()
		if err != nil {
			return fmt.Errorf("running picker: %w", err)
		}
		kb, action, ok := finalModel.(picker.Picker).Selected()
		if !ok || action != picker.ActionOpen {
			return nil
		}
		selected = kb
	}

	// a disabled tracker is fine
	_, err := e.lib.Update(context.Background(), func(s *model.Store) bool {
		return s.TrackBookmarkClick(selected.Key)
	})
	if err != nil {
		return err
	}
	openURL(selected.URL)
	return nil
}

func runAdd(e *env, a *args) error {
	if err := a.need(1, "add <url> [title] [--group name] [--tags a,b] [--desc text]"); err != nil {
		return err
	}
	params := model.NewBookmarkParams{
		URL:         a.arg(0),
		Title:       strings.Join(a.pos[1:], " "),
		Description: a.flag("desc"),
		Tags:        splitList(a.flag("tags")),
	}
	if err := update(e, "add "+params.URL, func(s *model.Store) bool {
		return s.QuickAdd(params, a.flag("group"))
	}); err != nil {
		return err
	}
	fmt.Printf("Added %s\n", params.URL)
	return nil
}

func runRemove(e *env, a *args) error {
	if err := a.need(1, "rm <url>"); err != nil {
		return err
	}
	return update(e, "delete "+a.arg(0), func(s *model.Store) bool {
		return s.DeleteBookmark(a.arg(0))
	})
}

func runArchive(e *env, a *args) error {
	if err := a.need(1, "archive <url>"); err != nil {
		return err
	}
	return update(e, "archive "+a.arg(0), func(s *model.Store) bool {
		return s.ArchiveBookmark(a.arg(0))
	})
}

func runUnarchive(e *env, a *args) error {
	if err := a.need(1, "unarchive <url> [--groups]"); err != nil {
		return err
	}
	return update(e, "unarchive "+a.arg(0), func(s *model.Store) bool {
		return s.UnarchiveBookmark(a.arg(0), a.bool("groups"))
	})
}

func runFavorite(e *env, a *args) error {
	if err := a.need(1, "fav <url>"); err != nil {
		return err
	}
	url := a.arg(0)
	var starred bool
	err := update(e, "favorite "+url, func(s *model.Store) bool {
		if s.IsFavorite(url) {
			return s.RemoveFromFavorites(url)
		}
		starred = true
		return s.AddToFavorites(url)
	})
	if err != nil {
		return err
	}
	if starred {
		fmt.Printf("★ %s\n", url)
	} else {
		fmt.Printf("☆ %s\n", url)
	}
	return nil
}

func runGroup(e *env, a *args) error {
	sub := a.arg(0)
	rest := &args{flags: a.flags}
	if len(a.pos) > 1 {
		rest.pos = a.pos[1:]
	}

	switch sub {
	case "", "list":
		return view(e, func(s *model.Store) {
			for _, g := range s.GetHierarchicalGroupOrder() {
				indent := strings.Repeat("  ", g.Depth)
				fmt.Printf("%s%s %s (%d)\n", indent, g.Group.Icon, g.Name, len(g.Group.URLs))
			}
		})
	case "create":
		if err := rest.need(1, "group create <name> [--parent name] [--icon i] [--color c]"); err != nil {
			return err
		}
		params := model.GroupParams{Icon: rest.flag("icon"), Color: rest.flag("color")}
		if p := rest.flag("parent"); p != "" {
			params.Parent = &p
		}
		return update(e, "create group "+rest.arg(0), func(s *model.Store) bool {
			return s.CreateGroup(rest.arg(0), params)
		})
	case "rm":
		if err := rest.need(1, "group rm <name> [--promote]"); err != nil {
			return err
		}
		return update(e, "delete group "+rest.arg(0), func(s *model.Store) bool {
			return s.DeleteGroup(rest.arg(0), rest.bool("promote"))
		})
	case "rename":
		if err := rest.need(2, "group rename <old> <new>"); err != nil {
			return err
		}
		return update(e, "rename group "+rest.arg(0), func(s *model.Store) bool {
			return s.RenameGroup(rest.arg(0), rest.arg(1))
		})
	case "add":
		if err := rest.need(2, "group add <name> <url>"); err != nil {
			return err
		}
		return update(e, "add to group "+rest.arg(0), func(s *model.Store) bool {
			return s.AddToGroup(rest.arg(1), rest.arg(0))
		})
	case "remove":
		if err := rest.need(2, "group remove <name> <url>"); err != nil {
			return err
		}
		return update(e, "remove from group "+rest.arg(0), func(s *model.Store) bool {
			return s.RemoveFromGroup(rest.arg(1), rest.arg(0))
		})
	case "parent":
		if err := rest.need(1, "group parent <name> [parent]"); err != nil {
			return err
		}
		var parent *string
		if p := rest.arg(1); p != "" {
			parent = &p
		}
		return update(e, "set parent of "+rest.arg(0), func(s *model.Store) bool {
			return s.SetParentGroup(rest.arg(0), parent)
		})
	default:
		return fmt.Errorf("unknown group command %q", sub)
	}
}

func runTags(e *env, _ *args) error {
	return view(e, func(s *model.Store) {
		for _, t := range s.GetSortedTags() {
			fmt.Printf("%5d  %s\n", t.Count, t.Tag)
		}
	})
}

func runMergeTag(e *env, a *args) error {
	if err := a.need(2, "merge-tag <from> <to>"); err != nil {
		return err
	}
	return update(e, "merge tag "+a.arg(0), func(s *model.Store) bool {
		return s.MergeTag(a.arg(0), a.arg(1))
	})
}

func runSearch(e *env, a *args) error {
	query := strings.Join(a.pos, " ")
	return view(e, func(s *model.Store) {
		for _, r := range search.Search(s, query) {
			printBookmark(r.Bookmark)
		}
	})
}

func printBookmark(kb model.KeyedBookmark) {
	fmt.Printf("%s\n  %s\n", kb.Title, kb.URL)
	if len(kb.Tags) > 0 {
		fmt.Printf("  #%s\n", strings.Join(kb.Tags, " #"))
	}
}

func runStats(e *env, _ *args) error {
	return view(e, func(s *model.Store) {
		sum := s.GetAnalyticsSummary()
		fmt.Printf("Bookmarks:      %s\n", humanize.Comma(int64(sum.Total)))
		fmt.Printf("Archived:       %s\n", humanize.Comma(int64(len(s.Archived))))
		fmt.Printf("Groups:         %s\n", humanize.Comma(int64(len(s.Groups))))
		fmt.Printf("Favorites:      %s\n", humanize.Comma(int64(len(s.FavoriteURLs))))
		fmt.Printf("Total clicks:   %s\n", humanize.Comma(int64(sum.TotalClicks)))
		fmt.Printf("Opened:         %s\n", humanize.Comma(int64(sum.ActiveBookmarks)))
		fmt.Printf("Never opened:   %s\n", humanize.Comma(int64(sum.NeverClicked)))
		fmt.Printf("Dormant (%dd):  %s\n", sum.DormantDays, humanize.Comma(int64(sum.DormantCount)))

		if used := s.GetMostUsedBookmarks(s.Settings.MostUsedCount); len(used) > 0 {
			fmt.Println("\nMost used:")
			for _, kb := range used {
				fmt.Printf("%6s  %s\n", humanize.Comma(int64(kb.ClickCount)), kb.Title)
			}
		}
	})
}

func runDormant(e *env, a *args) error {
	return view(e, func(s *model.Store) {
		days := s.Settings.DormantDays
		if n, err := strconv.Atoi(a.arg(0)); err == nil && n > 0 {
			days = n
		}
		for _, kb := range s.GetDormantBookmarks(days) {
			last := "never"
			if kb.LastAccessedAt != nil {
				last = humanize.Time(*kb.LastAccessedAt)
			}
			fmt.Printf("%-14s  %s  %s\n", last, kb.Title, kb.URL)
		}
	})
}

func runDupes(e *env, _ *args) error {
	return view(e, func(s *model.Store) {
		report := s.FindDuplicates()
		if report.Empty() {
			fmt.Println("No duplicates")
			return
		}
		for _, d := range report.Duplicates {
			fmt.Printf("%s\n  %s\n", d.Key, strings.Join(d.StoreKeys, "\n  "))
		}
		for _, k := range report.KeyMismatches {
			fmt.Printf("key mismatch: %s\n", k)
		}
	})
}

func runCheck(e *env, a *args) error {
	ctx := context.Background()
	opts := culler.Options{
		Concurrency: e.cfg.LinkCheck.Concurrency,
		Timeout:     e.cfg.LinkCheck.Timeout,
		OnProgress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rChecked %d/%d", done, total)
		},
	}
	start := time.Now()
	results, err := e.lib.CheckLinks(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	var dead int
	for _, r := range results {
		if r.OK() {
			continue
		}
		if r.Status == culler.Dead {
			dead++
		}
		detail := r.Error
		if r.StatusCode != 0 {
			detail = strconv.Itoa(r.StatusCode)
		}
		fmt.Printf("%-11s %-20s %s\n", r.Status, detail, r.URL)
	}
	fmt.Printf("%d links checked, %d dead (%s)\n", len(results), dead, time.Since(start).Round(time.Millisecond))

	if !a.bool("archive") || dead == 0 {
		return nil
	}
	archived, err := e.lib.ArchiveDeadLinks(ctx, results)
	if err != nil {
		return err
	}
	fmt.Printf("Archived %d dead bookmarks\n", len(archived))
	return nil
}

func parseSections(raw string) ([]transfer.Section, error) {
	var out []transfer.Section
	for _, name := range splitList(raw) {
		s, ok := transfer.ParseSection(name)
		if !ok {
			return nil, fmt.Errorf("unknown section %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// runExport writes a JSON backup envelope.
func runExport(e *env, a *args) error {
	sections, err := parseSections(a.flag("sections"))
	if err != nil {
		return err
	}
	envelope, err := e.lib.Export(transfer.ExportOptions{Sections: sections, IncludeAnalytics: a.bool("analytics")})
	if err != nil {
		return err
	}
	blob, err := transfer.Marshal(envelope)
	if err != nil {
		return err
	}

	outputPath := a.arg(0)
	if outputPath == "" {
		outputPath = fmt.Sprintf("bookmarks-%s.json", envelope.ExportDate.Format("2006-01-02"))
	}
	if err := os.WriteFile(outputPath, blob, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	fmt.Printf("Exported %d bookmarks (%s) to %s\n",
		len(envelope.Data.Bookmarks), humanize.Bytes(uint64(len(blob))), outputPath)
	return nil
}

func runImport(e *env, a *args) error {
	if err := a.need(1, "import <file.json> [--replace --yes] [--sections a,b]"); err != nil {
		return err
	}
	sections, err := parseSections(a.flag("sections"))
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(a.arg(0))
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	mode := transfer.Merge
	if a.bool("replace") {
		mode = transfer.Replace
	}

	res, err := e.lib.Import(context.Background(), blob, transfer.ImportOptions{
		Mode:      mode,
		Confirmed: a.bool("yes"),
		Sections:  sections,
	})
	if errors.Is(err, transfer.ErrReplaceNotConfirmed) {
		return fmt.Errorf("%w (pass --yes to replace all bookmarks)", err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d bookmarks, %d groups", res.Bookmarks, res.Groups)
	if res.Skipped > 0 {
		fmt.Printf(" (%d skipped)", res.Skipped)
	}
	fmt.Println()
	return nil
}

// runExportHTML handles the export-html subcommand.
func runExportHTML(e *env, a *args) error {
	outputPath := a.arg(0)
	if outputPath == "" {
		var err error
		if outputPath, err = exporter.DefaultExportPath(time.Now()); err != nil {
			return fmt.Errorf("default export path: %w", err)
		}
	}

	var (
		html          string
		count, groups int
	)
	if err := view(e, func(s *model.Store) {
		html = exporter.ExportHTML(s)
		count, groups = len(s.Bookmarks), len(s.Groups)
	}); err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	fmt.Printf("Exported %d bookmarks, %d groups to %s\n", count, groups, outputPath)
	return nil
}

// runImportHTML handles the import-html subcommand.
func runImportHTML(e *env, a *args) error {
	if err := a.need(1, "import-html <file.html>"); err != nil {
		return err
	}
	file, err := os.Open(a.arg(0))
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	entries, err := importer.ParseHTMLBookmarks(file)
	if err != nil {
		return fmt.Errorf("parsing HTML: %w", err)
	}

	var res importer.Result
	if _, err := e.lib.Update(context.Background(), func(s *model.Store) bool {
		res = importer.Merge(s, entries)
		return res.Added > 0 || res.Grouped > 0 || len(res.Groups) > 0
	}); err != nil {
		return err
	}

	fmt.Printf("Imported %d bookmarks, %d groups", res.Added, len(res.Groups))
	if res.Skipped > 0 {
		fmt.Printf(" (%d duplicates skipped)", res.Skipped)
	}
	fmt.Println()
	for _, u := range res.Rejected {
		fmt.Fprintf(os.Stderr, "rejected: %s\n", u)
	}
	return nil
}

func runSweep(e *env, _ *args) error {
	removed, err := e.lib.Sweep(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d expired archive entries\n", len(removed))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
