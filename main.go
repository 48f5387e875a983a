package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/database"
	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/store/local"
	"github.com/pricedesk/pricedesk/store/sheets"
	"github.com/pricedesk/pricedesk/util/common"
	"github.com/pricedesk/pricedesk/util/crypto"
	"github.com/pricedesk/pricedesk/util/mail"
	"github.com/pricedesk/pricedesk/web"
	"github.com/pricedesk/pricedesk/web/service"
)

func initLogger() {
	level, err := logger.LevelFromConfig(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

// newWorkbook builds the connector for the configured backend. The local
// backend opens and seeds its database first.
func newWorkbook() (*service.Workbook, error) {
	cfg := config.GetStoreConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var connector store.Connector
	if cfg.IsLocal() {
		if err := cfg.EnsureDirectoryExists(); err != nil {
			return nil, err
		}
		if err := database.InitDB(cfg.Local.Path, cfg.Workbook); err != nil {
			return nil, err
		}
		connector = local.NewConnector(database.GetDB())
	} else {
		connector = sheets.NewConnector(&cfg.Sheets)
	}
	return service.NewWorkbook(connector, cfg.Workbook), nil
}

func newServer(workbook *service.Workbook) *web.Server {
	sender := mail.NewSMTPSender(config.GetMailConfig())
	if !sender.Configured() {
		logger.Warning("SMTP sender is not configured; password reset mails are disabled")
	}
	audit := service.NewAuditLogService(workbook, nil)
	auth := service.NewAuthService(workbook, sender, audit)
	catalog := service.NewCatalogService(workbook, config.GetCatalogTTL(), nil)
	return web.NewServer(auth, catalog)
}

func runWebServer() {
	log.Printf("Starting %v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	workbook, err := newWorkbook()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			logger.Warning("close database:", err)
		}
	}()

	server := newServer(workbook)
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Restarting web server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = newServer(workbook)
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("Shutting down web server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func openUsers(ctx context.Context, workbook *service.Workbook) (store.Table, error) {
	users, err := workbook.Worksheet(ctx, model.UsersSheet)
	if err != nil {
		return nil, fmt.Errorf("open %s sheet: %w", model.UsersSheet, err)
	}
	return users, nil
}

func addUser(email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}
	workbook, err := newWorkbook()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	ctx := context.Background()
	users, err := openUsers(ctx, workbook)
	if err != nil {
		return err
	}
	if _, err := users.FindRow(ctx, email); err == nil {
		return fmt.Errorf("user %s already exists", email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	return users.AppendRow(ctx, []string{email, hash, strings.TrimSpace(name)})
}

func setPassword(email, password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	workbook, err := newWorkbook()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	auth := service.NewAuthService(workbook, nil, service.NewAuditLogService(workbook, nil))
	return auth.ChangePassword(context.Background(), strings.TrimSpace(email), password)
}

// importSheet appends every CSV record of file to the worksheet title.
func importSheet(title, file string, skipHeader bool) (int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	workbook, err := newWorkbook()
	if err != nil {
		return 0, err
	}
	defer database.CloseDB()

	ctx := context.Background()
	doc, err := workbook.Open(ctx)
	if err != nil {
		return 0, err
	}
	table, err := doc.Worksheet(ctx, title)
	if err != nil {
		return 0, err
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	n := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return n, err
		}
		if skipHeader && n == 0 {
			skipHeader = false
			continue
		}
		if err := table.AppendRow(ctx, record); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Println("load .env failed:", err)
	}

	var rootCmd = &cobra.Command{
		Use:     config.GetName(),
		Short:   "Dealer price lookup desk",
		Version: config.GetVersion(),
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage rows of the Users sheet",
	}

	var userAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a user with a hashed password",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if err := addUser(email, password, name); err != nil {
				fmt.Println("add user failed:", err)
				os.Exit(1)
			}
			fmt.Println("add user success")
		},
	}
	userAddCmd.Flags().String("email", "", "login email")
	userAddCmd.Flags().String("password", "", "initial password")
	userAddCmd.Flags().String("name", "", "display name")

	var userPasswdCmd = &cobra.Command{
		Use:   "passwd",
		Short: "Set a user's password",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if err := setPassword(email, password); err != nil {
				fmt.Println("set password failed:", err)
				os.Exit(1)
			}
			fmt.Println("set password success")
		},
	}
	userPasswdCmd.Flags().String("email", "", "login email")
	userPasswdCmd.Flags().String("password", "", "new password")

	userCmd.AddCommand(userAddCmd, userPasswdCmd)

	var sheetCmd = &cobra.Command{
		Use:   "sheet",
		Short: "Manage worksheet content",
	}

	var importCmd = &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append CSV rows to a worksheet",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			tab, _ := cmd.Flags().GetString("tab")
			skipHeader, _ := cmd.Flags().GetBool("skip-header")
			n, err := importSheet(tab, args[0], skipHeader)
			if err != nil {
				fmt.Printf("import failed after %d rows: %v\n", n, err)
				os.Exit(1)
			}
			fmt.Printf("imported %d rows into %s\n", n, tab)
		},
	}
	importCmd.Flags().String("tab", model.PriceSheet, "worksheet title")
	importCmd.Flags().Bool("skip-header", false, "skip the first CSV record")

	sheetCmd.AddCommand(importCmd)

	var hashCmd = &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			defer common.Recover("hash")
			hash, err := crypto.HashPassword(args[0])
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			fmt.Println(hash)
		},
	}

	rootCmd.AddCommand(runCmd, userCmd, sheetCmd, hashCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
