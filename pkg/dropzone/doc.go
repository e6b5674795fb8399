// Package dropzone implements the client side of a drag-and-drop file
// uploader embedded in a host application.
//
// A Session bridges the host: it learns whether the page is embedded,
// receives the host context (site domain, site path, channel name) and
// acquires a bearer token. A Machine consumes drag events, filters dropped
// files through an ExtensionPolicy and starts one upload attempt per
// accepted file through an Uploader, tracking a single Status for the zone:
//
//	idle -> running -> uploaded | errored -> idle (Reset)
//
// HTTPUploader implements the endpoint contract: a multipart POST with the
// fields file, domain, sitepath and channelname, authorized with the bearer
// token, answered with the uploaded file's URL as the response body.
//
// Uploads never start without a token and a complete host context; such a
// call fails with ErrPrecondition. Files with rejected extensions are
// skipped silently. Failures are terminal for the attempt and are never
// retried.
package dropzone
