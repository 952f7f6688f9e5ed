package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wiredb/wiredb"
	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/db"
	"github.com/wiredb/wiredb/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the interactive session state.
type CLI struct {
	store       *ps.Store
	engine      *db.Engine
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", "", "Base directory for the database (memory if empty)")
	useGit := flag.Bool("git", false, "Keep documents in a git repository")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	userName := flag.String("name", "wiredb", "User name for git commits")
	userEmail := flag.String("email", "cli@wiredb.local", "User email for git commits")
	flag.Parse()

	printBanner()

	identity := core.Identity{Name: *userName, Email: *userEmail}

	kv, err := openKV(*baseDir, *useGit, identity)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	instance := wiredb.Open(kv)
	engine, err := instance.Engine()
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	cli := &CLI{
		store:       instance.Store,
		engine:      engine,
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()

	if *sqlFile != "" {
		if err := cli.importFile(*sqlFile); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func openKV(baseDir string, useGit bool, identity core.Identity) (ps.KV, error) {
	switch {
	case baseDir == "" && useGit:
		fmt.Printf("%sUsing in-memory git storage%s\n", SuccessColor, ResetColor)
		return ps.NewMemoryGitKV(identity)
	case baseDir == "":
		fmt.Printf("%sUsing in-memory storage%s\n", SuccessColor, ResetColor)
		return ps.NewMemoryKV(), nil
	case useGit:
		fmt.Printf("%sUsing git storage: %s%s\n", SuccessColor, baseDir, ResetColor)
		return ps.NewGitKV(baseDir, identity)
	default:
		fmt.Printf("%sUsing file storage: %s%s\n", SuccessColor, baseDir, ResetColor)
		return ps.NewFileKV(baseDir)
	}
}

func printBanner() {
	fmt.Println()
	fmt.Printf("%s%swiredb v%s%s\n", BoldColor, PromptColor, Version, ResetColor)
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		fmt.Print(cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		// Accumulate until the statement ends with a semicolon.
		multiLineBuffer.WriteString(input)
		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		statement := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(statement) == "" {
			continue
		}

		cli.addToHistory(statement + ";")
		cli.execute(statement)
	}
}

func (cli *CLI) execute(statement string) {
	result, err := cli.engine.Execute(statement)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	result.Display()
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s  ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%swiredb>%s ", PromptColor, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute("SHOW TABLES")

	case ".schema":
		for name, columns := range cli.engine.Schema() {
			fmt.Printf("  %s: %s\n", name, strings.Join(columns, ", "))
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("wiredb version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	case ".export":
		if len(parts) > 2 {
			if err := cli.store.ExportTable(parts[1], parts[2], nil); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Exported %s to %s%s\n", SuccessColor, parts[1], parts[2], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .export <table> <url>%s\n", ErrorColor, ResetColor)
		}

	case ".load":
		if len(parts) > 2 {
			if err := cli.store.ImportTable(parts[1], parts[2], nil); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Imported %s from %s (restart to reload tables)%s\n", SuccessColor, parts[1], parts[2], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .load <table> <url>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h           Show this help message")
	fmt.Println("  .quit, .exit        Exit the CLI")
	fmt.Println("  .tables             List all tables")
	fmt.Println("  .schema             Show every table's columns")
	fmt.Println("  .import <file>      Execute SQL statements from a file")
	fmt.Println("  .export <t> <url>   Export a table dump (file or s3:// URL)")
	fmt.Println("  .load <t> <url>     Import a table dump (file, http(s):// or s3:// URL)")
	fmt.Println("  .history            Show command history")
	fmt.Println("  .clear              Clear the screen")
	fmt.Println("  .version            Show version info")
	fmt.Println()
	fmt.Printf("%s%sSQL Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  CREATE TABLE <table> (<column> <type>, ...);")
	fmt.Println("  DROP TABLE <table>;")
	fmt.Println("  ALTER TABLE <table> ADD COLUMN <column> <type>;")
	fmt.Println("  INSERT INTO <table> (<cols>) VALUES (<vals>);")
	fmt.Println("  SELECT <cols> FROM <table> [WHERE ...];")
	fmt.Println("  UPDATE <table> SET <col>=<val> [WHERE ...];")
	fmt.Println("  DELETE FROM <table> [WHERE ...];")
	fmt.Println("  BEGIN; COMMIT; ROLLBACK;")
	fmt.Println("  SHOW TABLES; DESCRIBE <table>;")
	fmt.Println()
}

func (cli *CLI) addToHistory(cmd string) {
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wiredb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(data))

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}

		result, err := cli.engine.Execute(stmt)
		if err != nil {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Printf("      Error: %v\n", err)
			errorCount++
			continue
		}
		if !result.Success {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Printf("      Error: %s\n", result.Message)
			errorCount++
			continue
		}

		successCount++
		fmt.Printf("%s[%d] ✓ %s (%s)%s\n", SuccessColor, i+1, truncate(stmt, 50), result.Message, ResetColor)
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// splitStatements splits SQL content into individual statements on
// semicolons, honoring string literals and -- comments.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
