// Package output provides serialization, output writers and listing
// renderers for panelport commands.
//
// The package is organized around three concerns:
//
//   - Serialization (serializer.go): JSON and YAML encoding with stable key
//     ordering for machine-readable command output.
//
//   - Writers (writer.go): Pluggable output destinations via the [Writer]
//     interface, with [StdoutWriter] and [FileWriter] implementations. File
//     writes go through an [afero.Fs] and can refuse to replace existing
//     files.
//
//   - Rendering (registry.go, table.go): Named renderers for saved-object
//     listings, selected with the --output flag.
package output
