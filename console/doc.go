// Package console holds the ordered output log produced by code runs.
//
// A [Log] is an append-only sequence of [Entry] values. Runners append to it
// while a program executes; callers render it with [Log.Snapshot], download it
// with [Log.WriteTo], and reset it with [Log.Clear].
//
//	log := console.NewLog()
//	log.Append(console.Output, "hello")
//	log.Append(console.Error, "boom")
//	for _, e := range log.Snapshot() {
//	    fmt.Println(e.Sequence, e.Kind, e.Text)
//	}
//
// Whether an entry is an error is carried by [Entry.Kind], never by the text.
package console
