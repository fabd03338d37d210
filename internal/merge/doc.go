// Package merge combines downloaded alert files into one output file and
// empties the download directory.
//
// Every record gets:
//   - year: 2000 + the configured two-digit year
//   - date: the alert day of year as MM-DD-YYYY
//   - uuid: alert_date, year and a random UUID concatenated
//
// With RemoveDuplicates, records whose geometries have the same WKT are
// dissolved into the first of them.
//
// MergeAndCleanup always empties the directory afterwards, including when
// the merge fails.
package merge
