package main

// seedRepos populates the file store with initial content so existence
// checks have something to resolve against out of the box. Called before
// the server accepts requests.
func seedRepos(s *repoStore) {
	s.seed("acme", "website", "README.md", readme())
	s.seed("acme", "website", "index.html", indexHTML())
	s.seed("acme", "website", "assets/style.css", styleCSS())

	// Empty-ish repo for pure-create batches.
	s.seed("acme", "scratch", ".gitkeep", "")

	// Fault-injection repos share the website content.
	s.seed("acme", "website-flaky", "README.md", readme())
}

func readme() string {
	return `# acme website

Static site for acme. Deployed from main.
`
}

func indexHTML() string {
	return `<!DOCTYPE html>
<html>
<head>
  <title>acme</title>
  <link rel="stylesheet" href="assets/style.css">
</head>
<body>
  <h1>acme</h1>
</body>
</html>
`
}

func styleCSS() string {
	return `body {
  font-family: sans-serif;
  margin: 2rem auto;
  max-width: 40rem;
}
`
}
