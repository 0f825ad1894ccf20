package filestore

import (
	"strconv"
	"time"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

// storeData is the flat on-disk representation. Everything is a string so the
// file stays trivially diffable and forward-compatible.
type storeData struct {
	PublicKey        string `json:"public_key" mapstructure:"public_key"`
	AccountExists    string `json:"account_exists" mapstructure:"account_exists"`
	FundedOrExisting string `json:"funded_or_existing" mapstructure:"funded_or_existing"`
	CreatedAt        string `json:"created_at" mapstructure:"created_at"`
	Keystore         string `json:"keystore" mapstructure:"keystore"`
	Theme            string `json:"theme" mapstructure:"theme"`
}

func (d storeData) isEmpty() bool {
	return d.PublicKey == ""
}

func (d *storeData) setWallet(data types.WalletData) {
	d.PublicKey = data.PublicKey
	d.AccountExists = strconv.FormatBool(data.AccountExists)
	d.FundedOrExisting = strconv.FormatBool(data.FundedOrExisting)
	d.CreatedAt = strconv.FormatInt(data.CreatedAt.Unix(), 10)
}

func (d storeData) wallet() (*types.WalletData, error) {
	if d.isEmpty() {
		return nil, nil
	}
	accountExists, _ := strconv.ParseBool(d.AccountExists)
	fundedOrExisting, _ := strconv.ParseBool(d.FundedOrExisting)
	createdAt, err := strconv.ParseInt(d.CreatedAt, 10, 64)
	if err != nil {
		createdAt = 0
	}
	return &types.WalletData{
		PublicKey:        d.PublicKey,
		AccountExists:    accountExists,
		FundedOrExisting: fundedOrExisting,
		CreatedAt:        time.Unix(createdAt, 0),
	}, nil
}
