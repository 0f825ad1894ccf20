package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	unitywallet "github.com/CrafterTA/UnityWallet-sub002"
	"github.com/CrafterTA/UnityWallet-sub002/client"
	restclient "github.com/CrafterTA/UnityWallet-sub002/client/rest"
	"github.com/CrafterTA/UnityWallet-sub002/store"
	"github.com/CrafterTA/UnityWallet-sub002/types"
)

var Version string

// envConfig is read once at startup. Flags override env values.
type envConfig struct {
	Datadir         string `envconfig:"UNITY_WALLET_DATADIR"`
	AuthURL         string `envconfig:"UNITY_WALLET_AUTH_URL"`
	StoreType       string `envconfig:"UNITY_WALLET_STORE_TYPE" default:"file"`
	TransportType   string `envconfig:"UNITY_WALLET_TRANSPORT_TYPE" default:"rest"`
	IdleTimeoutMins int    `envconfig:"UNITY_WALLET_IDLE_TIMEOUT_MINUTES" default:"15"`
}

var (
	env          envConfig
	walletClient unitywallet.WalletClient
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "UnityWallet CLI"
	app.Usage = "unity wallet command line interface"
	app.Commands = append(
		app.Commands,
		&createCommand,
		&importCommand,
		&statusCommand,
		&addressCommand,
		&dumpCommand,
		&refreshCommand,
		&logoutCommand,
		&themeCommand,
	)
	app.Flags = []cli.Flag{datadirFlag, urlFlag, storeTypeFlag}
	app.Before = func(ctx *cli.Context) error {
		if err := envconfig.Process("", &env); err != nil {
			return fmt.Errorf("error reading environment: %v", err)
		}
		wallet, err := getWalletClient(ctx)
		if err != nil {
			return fmt.Errorf("error initializing wallet client: %v", err)
		}
		walletClient = wallet

		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Specify the data directory",
	}
	urlFlag = &cli.StringFlag{
		Name:  "auth-url",
		Usage: "the url of the auth service to connect to",
	}
	storeTypeFlag = &cli.StringFlag{
		Name:  "store-type",
		Usage: "durable store backend: file, kv or sql",
	}
	passwordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "password to unlock the wallet",
	}
	seedFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "seed to import (any string; the key is derived from it)",
	}
	qrFlag = &cli.BoolFlag{
		Name:  "qr",
		Usage: "render the address as a QR code",
	}
	themeFlag = &cli.StringFlag{
		Name:  "set",
		Usage: "theme to store",
	}
)

var (
	createCommand = cli.Command{
		Name:  "create",
		Usage: "Create a new wallet protected by a password",
		Action: func(ctx *cli.Context) error {
			return create(ctx)
		},
		Flags: []cli.Flag{passwordFlag},
	}
	importCommand = cli.Command{
		Name:  "import",
		Usage: "Import a wallet from an existing seed",
		Action: func(ctx *cli.Context) error {
			return importWallet(ctx)
		},
		Flags: []cli.Flag{passwordFlag, seedFlag},
	}
	statusCommand = cli.Command{
		Name:  "status",
		Usage: "Show the wallet session state",
		Action: func(ctx *cli.Context) error {
			return status(ctx)
		},
	}
	addressCommand = cli.Command{
		Name:  "address",
		Usage: "Show the wallet public key",
		Action: func(ctx *cli.Context) error {
			return address(ctx)
		},
		Flags: []cli.Flag{qrFlag},
	}
	dumpCommand = cli.Command{
		Name:  "dump",
		Usage: "Print the decrypted wallet secret (requires password)",
		Action: func(ctx *cli.Context) error {
			return dumpSecret(ctx)
		},
		Flags: []cli.Flag{passwordFlag},
	}
	refreshCommand = cli.Command{
		Name:  "refresh",
		Usage: "Rotate the session token",
		Action: func(ctx *cli.Context) error {
			return walletClient.RefreshSession(ctx.Context)
		},
	}
	logoutCommand = cli.Command{
		Name:  "logout",
		Usage: "Revoke the session and wipe all wallet data except preferences",
		Action: func(ctx *cli.Context) error {
			return walletClient.Logout(ctx.Context)
		},
	}
	themeCommand = cli.Command{
		Name:  "theme",
		Usage: "Show or set the UI theme preference",
		Action: func(ctx *cli.Context) error {
			return theme(ctx)
		},
		Flags: []cli.Flag{themeFlag},
	}
)

func create(ctx *cli.Context) error {
	password, err := readPassword(ctx)
	if err != nil {
		return err
	}
	publicKey, err := walletClient.CreateWallet(ctx.Context, string(password))
	if err != nil {
		return err
	}
	fmt.Println(publicKey)
	return nil
}

func importWallet(ctx *cli.Context) error {
	seed := ctx.String(seedFlag.Name)
	if len(seed) == 0 {
		return fmt.Errorf("missing seed")
	}
	password, err := readPassword(ctx)
	if err != nil {
		return err
	}
	publicKey, err := walletClient.ImportWallet(ctx.Context, []byte(seed), string(password))
	if err != nil {
		return err
	}
	fmt.Println(publicKey)
	return nil
}

func status(ctx *cli.Context) error {
	hasSession, err := walletClient.HasSession(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("state: %s\nsession: %t\n", walletClient.State(), hasSession)
	return nil
}

func address(ctx *cli.Context) error {
	data, err := walletClient.GetWalletData(ctx.Context)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no wallet found")
	}
	if ctx.Bool(qrFlag.Name) {
		qr, err := qrcode.New(data.PublicKey, qrcode.Medium)
		if err != nil {
			return err
		}
		fmt.Println(qr.ToSmallString(false))
		return nil
	}
	fmt.Println(data.PublicKey)
	return nil
}

func dumpSecret(ctx *cli.Context) error {
	password, err := readPassword(ctx)
	if err != nil {
		return err
	}
	secret, err := walletClient.Dump(ctx.Context, string(password))
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}

func theme(ctx *cli.Context) error {
	if name := ctx.String(themeFlag.Name); name != "" {
		return walletClient.SetPreferences(ctx.Context, types.Preferences{Theme: name})
	}
	prefs, err := walletClient.GetPreferences(ctx.Context)
	if err != nil {
		return err
	}
	if prefs == nil {
		fmt.Println("no theme set")
		return nil
	}
	fmt.Println(prefs.Theme)
	return nil
}

func getWalletClient(ctx *cli.Context) (unitywallet.WalletClient, error) {
	datadir := env.Datadir
	if ctx.IsSet(datadirFlag.Name) {
		datadir = ctx.String(datadirFlag.Name)
	}
	if datadir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		datadir = filepath.Join(home, ".unity-wallet")
	}

	storeType := env.StoreType
	if ctx.IsSet(storeTypeFlag.Name) {
		storeType = ctx.String(storeTypeFlag.Name)
	}

	authURL := env.AuthURL
	if ctx.IsSet(urlFlag.Name) {
		authURL = ctx.String(urlFlag.Name)
	}
	if authURL == "" {
		return nil, fmt.Errorf("missing auth service url")
	}

	sdkStore, err := store.NewStore(store.Config{
		DurableStoreType:   storeType,
		EphemeralStoreType: types.InMemoryStore,
		BaseDir:            datadir,
	})
	if err != nil {
		return nil, err
	}

	var authClient client.AuthClient
	switch transport := env.TransportType; transport {
	case client.RestClient:
		authClient, err = restclient.NewClient(authURL)
	default:
		err = fmt.Errorf("unknown transport type %s", transport)
	}
	if err != nil {
		return nil, err
	}

	opts := []unitywallet.ClientOption{
		unitywallet.WithIdleTimeout(time.Duration(env.IdleTimeoutMins) * time.Minute),
	}

	wallet, err := unitywallet.LoadWalletClient(sdkStore, authClient, opts...)
	if err == nil {
		return wallet, nil
	}
	if errors.Is(err, unitywallet.ErrNotInitialized) {
		return unitywallet.NewWalletClient(sdkStore, authClient, opts...)
	}
	return nil, err
}

func readPassword(ctx *cli.Context) ([]byte, error) {
	password := []byte(ctx.String("password"))
	if len(password) == 0 {
		fmt.Print("unlock your wallet with password: ")
		var err error
		password, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return nil, err
		}
	}
	return password, nil
}
