package fundflow

import (
	"github.com/shopspring/decimal"

	"fundflow-lab/internal/domain"
)

const (
	creatorAddr  = domain.Address("0xc0000000000000000000000000000000000000c1")
	contractAddr = domain.Address("0xc0000000000000000000000000000000000000aa")
	senderAddr   = domain.Address("0x5e00000000000000000000000000000000000005")
	thirdAddr    = domain.Address("0x7700000000000000000000000000000000000007")
	fourthAddr   = domain.Address("0x8800000000000000000000000000000000000008")
)

func wei(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func addrPtr(a domain.Address) *domain.Address {
	return &a
}

func creationTx(hash string, value int64, block int64) *domain.Transaction {
	return &domain.Transaction{
		Hash:            hash,
		CrawledFrom:     contractAddr,
		Source:          creatorAddr,
		ContractAddress: addrPtr(contractAddr),
		Value:           wei(value),
		BlockNumber:     block,
	}
}

func callTx(hash string, from domain.Address, value int64, block int64, index int) *domain.Transaction {
	return &domain.Transaction{
		Hash:             hash,
		CrawledFrom:      contractAddr,
		Source:           from,
		Target:           addrPtr(contractAddr),
		Value:            wei(value),
		BlockNumber:      block,
		TransactionIndex: index,
	}
}

func transfer(hash string, from, to domain.Address, value int64) *domain.SubTransfer {
	return &domain.SubTransfer{
		Hash:        hash,
		CrawledFrom: contractAddr,
		Source:      from,
		Target:      addrPtr(to),
		Value:       wei(value),
	}
}

func creation(hash string, from, created domain.Address, value int64) *domain.SubTransfer {
	return &domain.SubTransfer{
		Hash:            hash,
		CrawledFrom:     contractAddr,
		Source:          from,
		ContractAddress: addrPtr(created),
		Value:           wei(value),
	}
}

// Ids of well-known cases in the built taxonomy.
const (
	idCreationFunded        = 40  // creator funds the contract at creation
	idCreatorPaysContract   = 84  // creator call sending value to the contract
	idCreatorCallNoFlow     = 78  // creator call without value movement
	idOtherForwardToCreator = 182 // other pays, contract forwards to creator
	idOtherPaysErrored      = 124 // other pays the contract, execution failed
	idOtherPaysContract     = 202 // other pays the contract, contract keeps it
	idOtherCallNoFlow       = 206 // other call without value movement
	idOtherForwardToThird   = 208 // other pays, contract forwards to a third account
)
