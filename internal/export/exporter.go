package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/ghexport-cli/internal/images"
	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// itemKind distinguishes issue and pull-request processing.
type itemKind string

const (
	kindIssue itemKind = "issue"
	kindPR    itemKind = "pr"
)

// dir returns the Markdown output directory name for the kind.
func (k itemKind) dir() string {
	return string(k) + "s"
}

// filePrefix returns the Markdown file name prefix for the kind.
func (k itemKind) filePrefix() string {
	return strings.ToUpper(string(k))
}

// heading returns the document title line.
func (k itemKind) heading(item Item) string {
	if k == kindIssue {
		return fmt.Sprintf("# Issue #%d: %s", item.Number, item.Title)
	}
	return fmt.Sprintf("# PR #%d: %s", item.Number, item.Title)
}

// Exporter runs the export pipeline for one repository at a time.
// Processing is strictly sequential: all issues, then all PRs.
type Exporter struct {
	// RawRoot is the root folder containing per-slug raw JSON.
	RawRoot string
	// OutRoot is the root folder for Markdown output.
	OutRoot string
	// Fetcher downloads image assets.
	Fetcher images.Fetcher
	// Progress receives progress and summary lines. Defaults to stdout.
	Progress io.Writer
}

func (e *Exporter) progress() io.Writer {
	if e.Progress != nil {
		return e.Progress
	}
	return os.Stdout
}

// ExportRepo processes one repository: loads the raw issue and PR
// arrays, renders a Markdown document per item with images rewritten
// to local assets, and flushes the missing-attachment log when any
// download failed. Missing or malformed raw files are fatal for the
// repository and reported via the returned error.
func (e *Exporter) ExportRepo(ctx context.Context, repo Repository) error {
	rawDir := filepath.Join(e.RawRoot, repo.Slug())

	issuesRaw, err := loadItemList(filepath.Join(rawDir, "issues.json"))
	if err != nil {
		return fmt.Errorf("load issues for %s: %w", repo, err)
	}
	prsRaw, err := loadItemList(filepath.Join(rawDir, "prs.json"))
	if err != nil {
		return fmt.Errorf("load prs for %s: %w", repo, err)
	}

	var issues []Item
	for _, raw := range issuesRaw {
		// The issues endpoint also lists pull requests.
		if isPullRequest(raw) {
			continue
		}
		issues = append(issues, extractItem(raw))
	}

	prs := make([]Item, 0, len(prsRaw))
	for _, raw := range prsRaw {
		prs = append(prs, extractItem(raw))
	}

	issueNumbers := knownNumbers(issues)
	prNumbers := knownNumbers(prs)

	stats := &RunStats{}
	total := len(issues) + len(prs)
	processed := 0
	lastPercent := -5

	logProgress := func() {
		if total == 0 {
			return
		}
		percent := processed * 100 / total
		// Log at 5% increments to bound output volume.
		if percent/5 != lastPercent/5 {
			fmt.Fprintf(e.progress(), "[%s] Progress: %d%% (%d/%d)\n", repo, percent, processed, total)
			lastPercent = percent
		}
	}

	for _, issue := range issues {
		comments := loadComments(filepath.Join(
			rawDir, "issue_comments", fmt.Sprintf("ISSUE-%d.json", issue.Number)))

		texts := make([]string, 0, len(comments)+1)
		texts = append(texts, issue.Body)
		for _, c := range comments {
			texts = append(texts, c.Body)
		}
		related := RelatedPRs(texts, prNumbers, repo)

		if err := e.writeItem(ctx, repo, kindIssue, issue, comments, related, stats); err != nil {
			return err
		}
		processed++
		logProgress()
	}

	for _, pr := range prs {
		issueComments := loadComments(filepath.Join(
			rawDir, "pr_issue_comments", fmt.Sprintf("PR-%d.json", pr.Number)))
		reviewComments := loadComments(filepath.Join(
			rawDir, "pr_review_comments", fmt.Sprintf("PR-%d.json", pr.Number)))
		comments := append(issueComments, reviewComments...)

		related := RelatedIssues(pr.Body, issueNumbers, repo)

		if err := e.writeItem(ctx, repo, kindPR, pr, comments, related, stats); err != nil {
			return err
		}
		processed++
		logProgress()
	}

	fmt.Fprintf(e.progress(), "[%s] Images: downloaded %d/%d (%d failed)\n",
		repo, stats.Images.Downloaded, stats.Images.Attempted, stats.Images.Failed)

	if len(stats.Missing) > 0 {
		missingPath := filepath.Join(e.OutRoot, MissingLogName(repo.Slug()))
		if err := WriteMissingLog(missingPath, stats.Missing); err != nil {
			return fmt.Errorf("write missing log: %w", err)
		}
		fmt.Fprintf(e.progress(), "[%s] Missing attachments list: %s\n", repo, missingPath)
	}

	return nil
}

// writeItem renders and writes one issue or PR document, downloading
// its images through a per-document tracker.
func (e *Exporter) writeItem(
	ctx context.Context, repo Repository, kind itemKind, item Item,
	comments []Comment, related []int, stats *RunStats,
) error {
	outRepo := filepath.Join(e.OutRoot, repo.Slug())
	mdDir := filepath.Join(outRepo, kind.dir())
	mdName := fmt.Sprintf("%s-%d.md", kind.filePrefix(), item.Number)
	assetsDir := filepath.Join(outRepo, "assets", kind.dir(), strconv.Itoa(item.Number))

	onMissing := func(url, rel string) {
		stats.Missing = append(stats.Missing, MissingAttachment{
			Repo:     repo.String(),
			RepoSlug: repo.Slug(),
			Kind:     string(kind),
			Number:   strconv.Itoa(item.Number),
			URL:      url,
			// The tracker path is document-relative; the log wants it
			// relative to the repository export directory.
			LocalPath:    strings.ReplaceAll(rel, "../", ""),
			MarkdownPath: kind.dir() + "/" + mdName,
		})
	}

	tracker := images.NewTracker(assetsDir, mdDir, e.Fetcher, &stats.Images, onMissing)
	rewrite := func(text string) string {
		return images.RewriteURLs(text, func(url string) string {
			return tracker.Resolve(ctx, url)
		})
	}

	description := rewrite(item.Body)

	sorted := sortComments(comments)
	blocks := make([]string, 0, len(sorted))
	for _, c := range sorted {
		blocks = append(blocks, renderCommentBlock(c, rewrite(c.Body)))
	}

	relatedHeading, relatedSection := "Related PRs", formatRelatedLinks(related, repo.URL()+"/pull", "PR")
	if kind == kindPR {
		relatedHeading = "Related Issues"
		relatedSection = formatRelatedLinks(related, repo.URL()+"/issues", "Issue")
	}

	doc := renderDocument(kind.heading(item), item, description, relatedHeading, relatedSection, blocks)

	if err := os.MkdirAll(mdDir, 0755); err != nil {
		return err
	}
	mdPath := filepath.Join(mdDir, mdName)
	if err := os.WriteFile(mdPath, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	logger.Debug("wrote %s", mdPath)
	return nil
}

// loadItemList reads a raw issues.json/prs.json array.
func loadItemList(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array (use gh api --paginate): %w", path, err)
	}
	return list, nil
}

// knownNumbers builds the set of item numbers present in the list.
func knownNumbers(items []Item) map[int]bool {
	set := make(map[int]bool, len(items))
	for _, item := range items {
		if item.Number != 0 {
			set[item.Number] = true
		}
	}
	return set
}
