package errors

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestRuleName suggests the closest known rule name when a reference does
// not resolve. It uses Levenshtein distance over runes, so accented names
// count one edit per character.
func SuggestRuleName(unknown string, names []string) string {
	if len(names) == 0 {
		return ""
	}

	// Find the closest match
	minDistance := 1000
	var bestMatch string

	for _, name := range names {
		// Compare against the last segment too, so "salaire" finds "contrat . salaire"
		candidates := []string{name}
		if i := strings.LastIndex(name, " . "); i >= 0 {
			candidates = append(candidates, name[i+3:])
		}
		for _, c := range candidates {
			dist := levenshteinDistance(unknown, c)
			if dist < minDistance {
				minDistance = dist
				bestMatch = name
			}
		}
	}

	// Only suggest if the distance is reasonable (< 4 edits)
	if minDistance < 4 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}
	return ""
}

// SuggestMechanism suggests a mechanism name for an unknown or misplaced key.
func SuggestMechanism(unknown string, mechanisms []string) string {
	sorted := append([]string(nil), mechanisms...)
	sort.Strings(sorted)

	minDistance := 1000
	var bestMatch string
	for _, m := range sorted {
		if dist := levenshteinDistance(unknown, m); dist < minDistance {
			minDistance = dist
			bestMatch = m
		}
	}

	if minDistance < 3 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}
	return fmt.Sprintf("Valid mechanisms: %s", strings.Join(sorted, ", "))
}

// SuggestMissingField suggests adding a required mechanism field.
func SuggestMissingField(fieldName string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s' to the mechanism", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add a '%s' field to the mechanism", fieldName)
}

// SuggestConversion lists the unit conversions the linker knows about.
func SuggestConversion(known []string) string {
	if len(known) == 0 {
		return ""
	}
	return fmt.Sprintf("Supported conversions: %s", strings.Join(known, ", "))
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}

	s1 := []rune(a)
	s2 := []rune(b)
	len1 := len(s1)
	len2 := len(s2)

	// Create distance matrix
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	// Initialize first column and row
	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	// Compute distances
	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
