// Package defensio provides a Go client for the Defensio content
// classification API.
//
// Defensio classifies user-generated documents (comments, forum posts, wiki
// edits) as legitimate, spam or malicious, and filters profanity. This
// package builds the versioned REST requests, sends them, and unwraps the
// "defensio-result" envelope of every response.
//
// # Quick Start
//
//	client, err := defensio.New(os.Getenv("DEFENSIO_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status, result, err := client.PostDocument(ctx, defensio.Params{
//	    defensio.Symbol("content"):  "This is a simple test",
//	    defensio.Symbol("platform"): "my_awesome_app",
//	    defensio.Symbol("type"):     "comment",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(status, result["allow"], result["spaminess"])
//
// # Parameters
//
// Request parameters are a flat Params set. Symbol keys are written with
// underscores and sent with hyphens (Symbol("author_email") is sent as
// "author-email"); Literal keys are sent exactly as given. The query string
// is sorted by wire name, so equal sets always produce equal requests.
//
// # Results
//
// Every operation returns the HTTP status code and the decoded Result. The
// status is not interpreted: a 4xx response with a well-formed body is
// returned without error so the service's "status" and "message" fields can
// be inspected. Results can be copied into typed views with Result.Decode:
//
//	var doc defensio.Document
//	if err := result.Decode(&doc); err != nil {
//	    return err
//	}
//
// # Asynchronous Callbacks
//
// Documents posted with async set are classified in the background and the
// result is posted to the callback URL. DecodeCallback decodes such a body
// from a string, a byte slice, an *http.Request or any reader;
// CallbackHandler serves the endpoint directly.
//
// # Thread Safety
//
// A Client is safe for concurrent use provided its Doer is. The default
// *http.Client is.
package defensio
