// Package logsource turns lines of text into pipeline events.
//
// Read scans an io.Reader (stdin in the agent) line by line, bounded by a
// maximum line size, and hands each non-empty line to a Parser. JSON object
// lines are decoded with fastjson:
//
//	level | lvl | severity     event severity (unknown values mean info)
//	msg | message              event message
//	time | ts | timestamp      RFC 3339 string or epoch number (s/ms/us/ns)
//	<module key> | logger      module used for filtering
//
// Every other field becomes structured metadata. Lines that are not JSON
// objects are shipped verbatim at info. A line over the size limit is
// logged and skipped; reading continues with the next line.
package logsource
