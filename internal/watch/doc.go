// Package watch re-imports bundle files whenever they change on disk. It
// watches the directories holding the files so editors that replace a file
// by renaming still trigger, debounces rapid events per file and runs one
// import at a time.
package watch
