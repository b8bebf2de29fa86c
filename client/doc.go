// Package client provides the high-level Transpo operations: uploading a
// file to a server and downloading one from a share link, with the
// encryption pipeline, transport adapters and transfer lifecycle wired
// together.
//
// # Uploading
//
//	uploader := client.NewUploader(client.Config{ServerURL: "https://transpo.example"}, registry)
//	up, err := uploader.Upload(file, client.UploadOptions{
//	    FileName: "notes.txt",
//	    MIMEType: "text/plain",
//	    Hours:    24,
//	})
//	fmt.Println(up.ShareLink)
//	err = up.Wait()
//
// The share link has the form
//
//	https://host/<id>[?nopass|?password=pw]#<key>
//
// with the key in the URL fragment, which is never sent to the server.
//
// # Downloading
//
//	downloader := client.NewDownloader(cfg, registry)
//	dl, err := downloader.Fetch(ctx, link, password)
//	err = dl.Save(outFile)
//
// Fetch returns once the file name and MIME type have decoded, so the
// output path can be chosen before any content is consumed.
//
// # Proxying
//
// Setting Config.Proxy routes every connection, HTTP and websocket, through
// a SOCKS5 proxy.
package client
