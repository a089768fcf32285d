// Package help holds the quick-start guide printed by "lpc guide".
package help

const ColdstartYAML = `# lpc quick start

modes:
  readability: "Isolate the main article, fall back to text when it is too short"
  text: "Whole page text after noise filtering (no metadata preamble)"

structure:
  text: "Markdown-structured text segmented into blocks (default)"
  html: "Blocks read directly from the isolated HTML"

commands:
  single_page: |
    lpc extract --url "https://example.com/article"

  batch: |
    lpc extract --urls "https://a.example/x,https://b.example/y" --workers 4 --manifest runs/summary.yaml

  local_file: |
    lpc extract --file page.html --base-url "https://example.com/page"

  prompt_budget: |
    lpc extract --url "https://example.com/article" --format text --max-tokens 2000
    lpc extract --url "https://example.com/article" --chunk --max-tokens 1500 --overlap 100

  headings_and_code_only: |
    lpc extract --url "https://example.com/docs" --only "type:heading|code"

  spa_pages: |
    lpc extract --url "https://app.example.com" --render

  pdf: |
    lpc pdf --file report.pdf --chunk --max-tokens 4000

config_commands:
  show: "lpc config show [--format yaml]"
  resolve: "lpc config resolve <domain> (merged config an extraction would use)"
  mode: "lpc config set-mode readability|text"
  selectors: "lpc config add-selector '.cookie-banner' / remove-selector"
  domain_rule: "lpc config set-domain news.example.com --name News --remove '.ad' --char-threshold 300"
  templates: "lpc config templates --mode readability"
  apply: "lpc config apply-template news.example.com readability news"
  suggest: "lpc config suggest https://blog.example.com/post --apply"
  backup: "lpc config export --format yaml --out extraction.yaml / lpc config import extraction.yaml"
  history: "lpc db history / lpc db restore <id> (sqlite store only)"

token_commands:
  estimate: "lpc tokens estimate --file notes.txt --model gpt-4o [--exact]"
  truncate: "cat notes.txt | lpc tokens truncate --max-tokens 500"
  chunk: "lpc tokens chunk --file notes.txt --max-tokens 800 --format text"

invariants:
  - "Metadata is read from the original page, before noise filtering"
  - "Block ids are block-0, block-1, ... in document order"
  - "Chunk bodies (text minus the overlap prefix) join back to the input exactly"
  - "Invalid stored config fields revert to defaults one by one"

error_behavior:
  - "Malformed URLs: fail fast before fetching"
  - "Browser-internal pages (chrome://, about:) are reported as unsupported_page"
  - "Exit codes: 0=success, 1=extraction failure, 2=usage or setup error"
`
