// Package export saves lead files into object storage.
//
// An Exporter writes each file as a single object, tagged with a text/csv
// content type and an attachment Content-Disposition so the object can be
// served back as a download. With the default file:// bucket this is the
// equivalent of saving the file to the working directory.
//
// # Usage
//
//	bucket, _ := blob.OpenBucket(ctx, "file://.")
//	exp := export.New(bucket, "file://.", log)
//	obj, err := exp.Save(ctx, "google-maps-leads-2026-10-19.csv", bytes.NewReader(csv))
//	// obj.Key, obj.Size, obj.Location
package export
