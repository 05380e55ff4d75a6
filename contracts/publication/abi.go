// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package publication

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// publisherMetaData contains the ABI of the DSNP Publisher contract.
var publisherMetaData = &bind.MetaData{
	ABI: "[{\"anonymous\":false,\"inputs\":[{\"indexed\":true,\"internalType\":\"int16\",\"name\":\"announcementType\",\"type\":\"int16\"},{\"indexed\":false,\"internalType\":\"bytes32\",\"name\":\"fileHash\",\"type\":\"bytes32\"},{\"indexed\":false,\"internalType\":\"string\",\"name\":\"fileUrl\",\"type\":\"string\"}],\"name\":\"DSNPBatchPublication\",\"type\":\"event\"},{\"inputs\":[{\"components\":[{\"internalType\":\"int16\",\"name\":\"announcementType\",\"type\":\"int16\"},{\"internalType\":\"string\",\"name\":\"fileUrl\",\"type\":\"string\"},{\"internalType\":\"bytes32\",\"name\":\"fileHash\",\"type\":\"bytes32\"}],\"internalType\":\"struct IPublish.Publication[]\",\"name\":\"publications\",\"type\":\"tuple[]\"}],\"name\":\"publish\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"}]",
}

const (
	publishMethod      = "publish"
	batchPublishedName = "DSNPBatchPublication"
)

// Publication is a single entry of a publish call.
type Publication struct {
	AnnouncementType int16       `abi:"announcementType"`
	FileURL          string      `abi:"fileUrl"`
	FileHash         common.Hash `abi:"fileHash"`
}

// batchPublicationLog is the decoded DSNPBatchPublication event.
type batchPublicationLog struct {
	AnnouncementType int16
	FileHash         common.Hash `abi:"fileHash"`
	FileURL          string      `abi:"fileUrl"`
}

var errEventSignatureMismatch = errors.New("event signature mismatch")

// unpackLog unpacks a retrieved log into the provided output structure.
func unpackLog(c *abi.ABI, out interface{}, event string, log types.Log) error {
	if len(log.Topics) == 0 || log.Topics[0] != c.Events[event].ID {
		return errEventSignatureMismatch
	}
	if len(log.Data) > 0 {
		if err := c.UnpackIntoInterface(out, event, log.Data); err != nil {
			return err
		}
	}
	var indexed abi.Arguments
	for _, arg := range c.Events[event].Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, log.Topics[1:])
}
