package mcpserver

// HowToUse is the user guide published as the dailynotes://how-to-use resource.
const HowToUse = `# How to Use Daily Notes

Daily Notes keeps short notes on this machine. Every change is saved
immediately; nothing leaves the device unless you share or back it up.

## Creating notes

1. Call ` + "`create_note`" + ` with a title (required) and optional content and tags.
2. The note gets an ID and creation time and appears first in ` + "`list_notes`" + `.
3. Use ` + "`update_note`" + ` with the same ID to change it; its creation time never changes.

A title made only of spaces is rejected.

## Voice notes

Record a clip, then pass it to ` + "`attach_audio`" + ` as a base64 data URI
(` + "`data:audio/wav;base64,...`" + `). Give a ` + "`note_id`" + ` to attach the clip to an
existing note; otherwise the returned URL can be used as ` + "`audioUrl`" + ` later.

## Sharing and backup

- **WhatsApp:** ` + "`share_note`" + ` returns a wa.me link with the title, a blank line and the content.
- **Backup:** ` + "`backup_notes`" + ` sends the whole collection to the configured backup target.
- **PDF:** ` + "`export_pdf`" + ` returns every note, grouped by day with the newest day first,
  as a PDF data URI.

## Tips

- ` + "`list_notes`" + ` with ` + "`group=day`" + ` shows notes organised by the day they were created.
- Deleting a note that is already gone is not an error.
- If saving fails (for example the disk is full) the change still applies for this
  session and the result carries a ` + "`warning`" + `; it may be lost on restart.
`
