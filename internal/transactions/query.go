package transactions

// PageQuery is the GetTransactionsPage operation
const PageQuery = `query GetTransactionsPage($first: Int, $after: String) {
  me {
    defaultAccount {
      transactions(first: $first, after: $after) {
        edges {
          cursor
          node {
            id
            status
            direction
            memo
            settlementAmount
            settlementCurrency
            settlementFee
            createdAt
            settlementVia {
              __typename
              ... on SettlementViaIntraLedger {
                counterPartyWalletId
                counterPartyUsername
              }
              ... on SettlementViaLn {
                paymentSecret
                preImage
              }
              ... on SettlementViaOnChain {
                transactionHash
              }
            }
            initiationVia {
              __typename
              ... on InitiationViaIntraLedger {
                counterPartyWalletId
                counterPartyUsername
              }
              ... on InitiationViaLn {
                paymentHash
              }
              ... on InitiationViaOnChain {
                address
              }
            }
          }
        }
        pageInfo {
          endCursor
          hasNextPage
        }
      }
    }
  }
}`
