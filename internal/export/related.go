package export

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// prContextPattern matches a pull-request keyword immediately followed
// by #<number>.
var prContextPattern = regexp.MustCompile(
	`(?i)(?:\bpr\b|\bpull\s+request\b|\bpull\b|\bmerge\b)\s*#(\d+)`)

// issueFixPattern matches a closing keyword (fixes/closes/resolves and
// their singular/past-tense variants) followed by an optional
// owner/repo qualifier and #<number>.
var issueFixPattern = regexp.MustCompile(
	`(?i)\b(?:fixe[sd]?|close[sd]?|resolve[sd]?)\s+(?:([\w.-]+)/([\w.-]+))?#(\d+)`)

// prURLPattern builds the repo-qualified pull-request URL matcher.
func prURLPattern(repo Repository) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		`(?i)https?://github\.com/%s/%s/pull/(\d+)`,
		regexp.QuoteMeta(repo.Owner), regexp.QuoteMeta(repo.Name)))
}

// RelatedPRs scans text bodies for mentions of pull requests of the
// same repository, via repo-qualified pull URLs or keyword + #number.
// Only numbers present in prNumbers are returned, sorted ascending.
func RelatedPRs(texts []string, prNumbers map[int]bool, repo Repository) []int {
	related := make(map[int]bool)
	urlPattern := prURLPattern(repo)

	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
			if num, err := strconv.Atoi(m[1]); err == nil && prNumbers[num] {
				related[num] = true
			}
		}
		for _, m := range prContextPattern.FindAllStringSubmatch(text, -1) {
			if num, err := strconv.Atoi(m[1]); err == nil && prNumbers[num] {
				related[num] = true
			}
		}
	}

	return sortedNumbers(related)
}

// RelatedIssues scans a PR body for closing-keyword references to
// issues of the same repository. A mention qualified with owner/repo
// must match the current repository case-insensitively or it is
// discarded. Only numbers present in issueNumbers are returned,
// sorted ascending.
func RelatedIssues(prBody string, issueNumbers map[int]bool, repo Repository) []int {
	if prBody == "" {
		return nil
	}

	related := make(map[int]bool)
	for _, m := range issueFixPattern.FindAllStringSubmatch(prBody, -1) {
		owner, name := m[1], m[2]
		if owner != "" && name != "" {
			if !strings.EqualFold(owner, repo.Owner) || !strings.EqualFold(name, repo.Name) {
				continue
			}
		}
		if num, err := strconv.Atoi(m[3]); err == nil && issueNumbers[num] {
			related[num] = true
		}
	}

	return sortedNumbers(related)
}

func sortedNumbers(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	numbers := make([]int, 0, len(set))
	for num := range set {
		numbers = append(numbers, num)
	}
	sort.Ints(numbers)
	return numbers
}
