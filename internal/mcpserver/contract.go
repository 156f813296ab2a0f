package mcpserver

// NoteFormatContract describes how linkbook notes are written and how links
// drive note creation, renaming and deletion.
const NoteFormatContract = `# Linkbook Note Format Contract

Notes are plain Markdown text identified by a unique, case-sensitive name.

## Structure

` + "```" + `markdown
# Note Name

Body text in standard Markdown.

Link other notes with [[Other Note]].
` + "```" + `

## Rules

1. **Names** are exact: ` + "`" + `[[Project Plan]]` + "`" + ` and ` + "`" + `[[project plan]]` + "`" + ` are different notes.
2. **The first heading** (` + "`" + `# Name` + "`" + `) mirrors the note name. Renaming a note rewrites it.
3. **Links** are ` + "`" + `[[Target]]` + "`" + `. Everything between the brackets is the target name;
   there is no alias syntax. A link to a missing note creates it with the content ` + "`" + `# Target` + "`" + `.
4. **Editing links in the active note** is reconciled on every edit:
   - a new link whose name extends an existing note name (e.g. ` + "`" + `[[Proj]]` + "`" + ` to
     ` + "`" + `[[Project Plan]]` + "`" + `) may rename that note instead of creating a new one;
   - a removed link deletes its note when no other note links to it.
5. **Home** always exists and can be neither renamed nor deleted.
6. Only the active note is reconciled. Open a note with ` + "`" + `open_note` + "`" + ` before editing it
   with ` + "`" + `edit_active_note` + "`" + `.

## Example

` + "```" + `markdown
# Weekly standup

Attendees: [[Alice]], [[Bob]].

## Action items

- review the [[Design Doc]]
- update the [[Roadmap]]
` + "```" + `
`
