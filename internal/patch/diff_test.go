package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketOriginal = `resource "aws_s3_bucket" "logs" {
  bucket = "corp-logs"
  acl    = "public-read"
}
`

const bucketDiff = `--- a/main.tf
+++ b/main.tf
@@ -1,4 +1,4 @@
 resource "aws_s3_bucket" "logs" {
   bucket = "corp-logs"
-  acl    = "public-read"
+  acl    = "private"
 }
`

func TestApplyDiffUpdate(t *testing.T) {
	got, err := ApplyDiff(bucketOriginal, bucketDiff)
	require.NoError(t, err)
	assert.Equal(t, `resource "aws_s3_bucket" "logs" {
  bucket = "corp-logs"
  acl    = "private"
}
`, got)
}

func TestApplyDiffCreate(t *testing.T) {
	diff := `--- /dev/null
+++ b/versions.tf
@@ -0,0 +1,3 @@
+terraform {
+  required_version = ">= 1.5"
+}
`
	got, err := ApplyDiff("", diff)
	require.NoError(t, err)
	assert.Equal(t, "terraform {\n  required_version = \">= 1.5\"\n}\n", got)
}

func TestApplyDiffMultipleHunks(t *testing.T) {
	original := "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\n"
	diff := `@@ -1,2 +1,2 @@
 one
-two
+TWO
@@ -6,2 +6,3 @@
 six
 seven
+seven-and-a-half
`
	got, err := ApplyDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nthree\nfour\nfive\nsix\nseven\nseven-and-a-half\neight\n", got)
}

func TestApplyDiffFuzzyOffset(t *testing.T) {
	// The hunk header points at the wrong line; the context block still
	// matches further down the file.
	original := "a\nb\nc\nd\ne\n"
	diff := `@@ -1,2 +1,2 @@
 c
-d
+D
`
	got, err := ApplyDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nD\ne\n", got)
}

func TestApplyDiffPureInsertion(t *testing.T) {
	// A zero old count means insert after the stated line, not at it.
	original := "one\ntwo\nthree\n"
	diff := `@@ -2,0 +3,1 @@
+inserted
`
	got, err := ApplyDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\ninserted\nthree\n", got)
}

func TestApplyDiffPureInsertionAtEnd(t *testing.T) {
	original := "one\ntwo\n"
	diff := `@@ -2,0 +3,1 @@
+three
`
	got, err := ApplyDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", got)
}

func TestApplyDiffConflict(t *testing.T) {
	diff := `@@ -1,2 +1,2 @@
 resource "aws_s3_bucket" "logs" {
-  acl = "authenticated-read"
+  acl = "private"
`
	_, err := ApplyDiff(bucketOriginal, diff)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.NotEmpty(t, ce.Detail)
}

func TestApplyDiffNoTrailingNewline(t *testing.T) {
	diff := `@@ -0,0 +1,1 @@
+last line
\ No newline at end of file
`
	got, err := ApplyDiff("", diff)
	require.NoError(t, err)
	assert.Equal(t, "last line", got)
}

func TestApplyDiffDeleteToEmpty(t *testing.T) {
	diff := `@@ -1,1 +0,0 @@
-only line
`
	got, err := ApplyDiff("only line\n", diff)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestApplyDiffMalformed(t *testing.T) {
	_, err := ApplyDiff("content\n", "this is prose, not a diff")
	assert.ErrorIs(t, err, ErrMalformedDiff)
}

func TestApplyDiffPreservesRemainder(t *testing.T) {
	original := "keep1\nchange\nkeep2\nkeep3\n"
	diff := `@@ -1,3 +1,3 @@
 keep1
-change
+changed
 keep2
`
	got, err := ApplyDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, "keep1\nchanged\nkeep2\nkeep3\n", got)
}
