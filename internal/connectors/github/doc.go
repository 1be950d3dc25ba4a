// Package github reads a codebase from a GitHub repository.
//
// The reader lists the repository tree in one recursive call and then
// fetches each accepted blob. Files are filtered with the same rules as a
// local directory: the default ignore patterns, every .gitignore in the
// tree, the code-file check and the size cap.
//
// # Authentication
//
// A personal access token (classic or fine-grained) raises the limit from
// 60 to 5,000 requests per hour and is required for private repositories.
// The token is passed as a static OAuth2 bearer token.
//
// # Rate limiting
//
// Requests go through a token bucket and, when the X-RateLimit-Remaining
// header drops below a reserve, wait for the advertised reset.
package github
